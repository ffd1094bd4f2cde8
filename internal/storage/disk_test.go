package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSized(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, n), 0644))
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f1.txt")
	sub := filepath.Join(dir, "sub")
	writeSized(t, file, 5)
	writeSized(t, filepath.Join(sub, "a"), 2)
	writeSized(t, filepath.Join(sub, "nested", "b"), 1)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{file}, 5},
		{"directory is recursive", []string{sub}, 3},
		{"file and directory", []string{file, sub}, 8},
		{"missing path skipped", []string{file, filepath.Join(dir, "nonexistent"), sub}, 8},
		{"empty path skipped", []string{"", file}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathStats(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	writeSized(t, filepath.Join(uploads, "0f3a_report.pdf"), 3)
	writeSized(t, filepath.Join(uploads, "9c1d_notes.txt"), 2)

	files, n, err := PathStats(uploads)
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.EqualValues(t, 5, n)

	files, n, err = PathStats(filepath.Join(uploads, "0f3a_report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.EqualValues(t, 3, n)

	files, n, err = PathStats(filepath.Join(uploads, "missing"))
	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, n)
}

func TestDatabaseBytes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "shiori.db")
	writeSized(t, db, 4096)
	writeSized(t, db+"-wal", 100)

	got, err := DatabaseBytes(db)
	require.NoError(t, err)
	assert.EqualValues(t, 4196, got)

	got, err = DatabaseBytes("")
	require.NoError(t, err)
	assert.Zero(t, got)
}
