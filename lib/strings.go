package lib

import (
	"regexp"
	"strings"
)

var reManySlashes = regexp.MustCompile("/{2,}")

// TrimSlashes removes leading and trailing slashes
func TrimSlashes(s string) string {
	return strings.Trim(s, "/")
}

// JoinURL joins base and key with single slash.
// Duplicated slashes are collapsed everywhere except the scheme part.
// Example:
// JoinURL("https://cdn.example.com/", "/cdn//app.wasm") is 'https://cdn.example.com/cdn/app.wasm'
func JoinURL(base, key string) string {
	scheme, rest, found := strings.Cut(base, "://")
	if !found {
		scheme, rest = "", base
	}
	rest = reManySlashes.ReplaceAllString(strings.TrimRight(rest, "/")+"/"+key, "/")
	if scheme == "" {
		return rest
	}
	return scheme + "://" + rest
}
