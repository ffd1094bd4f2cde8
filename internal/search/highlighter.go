package search

import (
	"strings"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Snippet returns the first maxChars characters of text.
func Snippet(text string, maxChars int) string {
	return utils.Prefix(text, maxChars)
}

// BuildAnswer joins the snippet of every chunk with single spaces and caps the
// result at answerChars characters. It returns nil when chunks is empty.
func BuildAnswer(chunks []models.RetrievedChunk, snippetChars, answerChars int) *string {
	if len(chunks) == 0 {
		return nil
	}
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = Snippet(ch.Text, snippetChars)
	}
	answer := utils.Prefix(strings.Join(parts, " "), answerChars)
	return &answer
}
