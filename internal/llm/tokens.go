package llm

import (
	"strings"
	"unicode"
)

// CountTokens provides a simple token count approximation, used for
// logging prompt sizes.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}

	// Most tokenizers produce ~1.3 tokens per word on average
	wordCount := len(strings.Fields(text))

	punctCount := 0
	for _, r := range text {
		if unicode.IsPunct(r) {
			punctCount++
		}
	}

	return int(float64(wordCount)*1.3) + punctCount/2
}
