package lib

import "strings"

// IsSecureFileName checking the file name does not have some hacks in it
func IsSecureFileName(name string) bool {
	if strings.Contains(name, "..") || strings.Contains(name, "./") || strings.Contains(name, ":") {
		return false
	}
	return true
}

// IsKeyValueBlacklisted returns true for config keys,
// which values must never be printed
func IsKeyValueBlacklisted(key string) bool {
	list := []string{
		"PASSWORD",
		"SECRET",
	}

	key = strings.ToUpper(key)
	for _, term := range list {
		if strings.Contains(key, term) {
			return true
		}
	}

	return false
}

// Mask returns value or stars if key is blacklisted
func Mask(key, value string) string {
	if value == "" || !IsKeyValueBlacklisted(key) {
		return value
	}
	return "********************************"
}
