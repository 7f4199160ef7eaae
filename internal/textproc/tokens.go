package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates provider tokens as 1.33 per word. Empty input
// costs nothing; any other input costs at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	return max(1, (words*133+99)/100)
}

// EstimateChunkTokens approximates tokens as one per four characters.
func EstimateChunkTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// ContentHash returns the hex sha256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuestion lowercases q, collapses whitespace runs and trims it.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Preview returns at most n runes of text.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}
