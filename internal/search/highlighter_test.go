package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/models"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 10))
	assert.Equal(t, "long", Snippet("long text here", 4))
	assert.Equal(t, "日本", Snippet("日本語のテキスト", 2))
	assert.Equal(t, "", Snippet("x", 0))
}

func TestBuildAnswer(t *testing.T) {
	assert.Nil(t, BuildAnswer(nil, 200, 800))

	chunks := []models.RetrievedChunk{
		{Text: strings.Repeat("a", 300)},
		{Text: "second"},
	}
	answer := BuildAnswer(chunks, 200, 800)
	require.NotNil(t, answer)
	assert.Equal(t, strings.Repeat("a", 200)+" second", *answer)
}

func TestBuildAnswer_Cap(t *testing.T) {
	chunks := make([]models.RetrievedChunk, 8)
	for i := range chunks {
		chunks[i] = models.RetrievedChunk{Text: strings.Repeat("é", 250)}
	}
	answer := BuildAnswer(chunks, 200, 800)
	require.NotNil(t, answer)
	assert.Len(t, []rune(*answer), 800)
	// 200 + 1 + 200 + 1 + 200 + 1 + 197
	assert.Equal(t, " ", string([]rune(*answer)[200]))
}
