package random

import (
	"path/filepath"
	"strings"
)

// Filepath returns random path up to max directory
func Filepath(n int) string {
	a := []string{}
	n = Value([]int{0, n})
	for x := 0; x < n; x++ {
		a = append(a, strings.ReplaceAll(Words([]int{1, 3}), " ", "_"))
	}
	return strings.Join(a, string(filepath.Separator))
}

// AssetName returns random asset file name in vite-like form name-hash.ext
func AssetName(ext string) string {
	if ext == "" {
		ext = Element([]string{"png", "svg", "wasm", "woff2", "webp", "mp3", "glb"})
	}
	name := strings.ReplaceAll(Words([]int{1, 2}), " ", "_")
	return name + "-" + Hex(8) + "." + ext
}
