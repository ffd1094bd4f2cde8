package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/extract"
)

func TestMinimalFile_AllTypesExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "E2E searchable content"
	for _, st := range FixtureSourceTypes {
		t.Run(string(st), func(t *testing.T) {
			content, err := MinimalFile(st, sample)
			require.NoError(t, err)
			require.NotEmpty(t, content)

			units, err := e.ParseBytes(content, st)
			require.NoError(t, err)
			require.NotEmpty(t, units)
			assert.Contains(t, units[0].Text, sample)
		})
	}
}

func TestMinimalFile_Unsupported(t *testing.T) {
	_, err := MinimalFile("pdf", "x")
	assert.Error(t, err)
}
