package random

import (
	"strings"

	"github.com/go-loremipsum/loremipsum"
)

var gen = loremipsum.New()

// assetWords are typical parts of bundled asset names
var assetWords = []string{
	"logo", "icon", "sprite", "hero", "banner", "avatar", "font",
	"worker", "chunk", "vendor", "atlas", "texture", "model", "sound",
}

// Word returns either lorem ipsum word or asset-like word
func Word() string {
	if Value([]int{0, 1}) == 0 {
		return Element(assetWords)
	}
	return gen.Word()
}

// Words returns space separated words, their count in range r
func Words(r []int) string {
	n := Value(r)
	a := make([]string, 0, n)
	for x := 0; x < n; x++ {
		a = append(a, Word())
	}
	return strings.Join(a, " ")
}

// Sentences returns lorem ipsum text, used as asset content
func Sentences(r []int) string {
	return gen.Sentences(Value(r))
}
