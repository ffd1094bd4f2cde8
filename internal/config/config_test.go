package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: mock
  mock_dimensions: 16
  timeout: 5s
  query_cache_size: -1
  retry:
    base_delay: 10ms
vector:
  type: sqlite
  strict_dimension: true
jobs:
  backend: memory
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.False(t, cfg.Debug)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 16, cfg.Embedding.MockDimensions)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, -1, cfg.Embedding.QueryCacheSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Embedding.Retry.BaseDelay)
	assert.True(t, cfg.Vector.StrictDimension)
	assert.Equal(t, "memory", cfg.Jobs.ResolvedBackend(cfg.Storage.DatabasePath))

	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Embedding.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Retry.MaxDelay)
	assert.Equal(t, "docs", cfg.Vector.Collection)
	assert.Equal(t, 2048, cfg.Embedding.MaxBatchInputs)
	assert.NotEmpty(t, cfg.Storage.DatabasePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Debug(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "missing file")

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err, "malformed yaml")
}

func TestLoad_RelativePathsResolveAgainstConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  upload_dir: "./uploads"
  database_path: "./data/shiori.db"
watch:
  directories: ["./inbox", "/abs/inbox"]
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.Storage.UploadDir)
	assert.Equal(t, filepath.Join(dir, "data", "shiori.db"), cfg.Storage.DatabasePath)
	assert.Equal(t, []string{filepath.Join(dir, "inbox"), "/abs/inbox"}, cfg.Watch.Directories)
	assert.True(t, cfg.Watch.RecursiveOrDefault())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1000, cfg.Embedding.QueryCacheSize)
	assert.Equal(t, time.Second, cfg.Embedding.Retry.BaseDelay)

	assert.Equal(t, "qdrant", cfg.Vector.Type)
	assert.Equal(t, "docs", cfg.Vector.Collection)
	assert.False(t, cfg.Vector.StrictDimension)

	assert.Equal(t, "rag", cfg.Jobs.Database)
	assert.Equal(t, "jobs", cfg.Jobs.Collection)

	assert.Equal(t, 2000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 250, cfg.Chunking.Overlap())
	assert.Equal(t, 50, cfg.Chunking.MaxTableRows)
	assert.Equal(t, RetrievalConfig{DefaultTopK: 8, MaxTopK: 100, SnippetChars: 200, AnswerChars: 800}, cfg.Retrieval)

	assert.Nil(t, cfg.Watch.Recursive, "no watch directories, recursive stays unset")
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	off := false
	overlap := 50
	cfg := &Config{
		Chunking: ChunkingConfig{ChunkSize: 500, ChunkOverlap: &overlap},
		Watch:    WatchConfig{Directories: []string{"/tmp/inbox"}, Recursive: &off},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap())
	assert.Equal(t, 50, cfg.Chunking.MaxTableRows)
	assert.False(t, cfg.Watch.RecursiveOrDefault())
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	on, off := true, false
	assert.True(t, (&WatchConfig{}).RecursiveOrDefault())
	assert.True(t, (&WatchConfig{Recursive: &on}).RecursiveOrDefault())
	assert.False(t, (&WatchConfig{Recursive: &off}).RecursiveOrDefault())

	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	require.NotNil(t, cfg.Watch.Recursive)
	assert.True(t, *cfg.Watch.Recursive)
}

func intPtr(v int) *int { return &v }

func TestChunkingConfig_Overlap(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantSize int
		want     int
	}{
		{"unset uses an eighth of the default size", "", 2000, 250},
		{"unset follows a smaller size", "chunking:\n  chunk_size: 200\n", 200, 25},
		{"explicit zero is kept", "chunking:\n  chunk_overlap: 0\n", 2000, 0},
		{"explicit value", "chunking:\n  chunk_size: 1000\n  chunk_overlap: 100\n", 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "debug: false\n"+tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, cfg.Chunking.ChunkSize)
			assert.Equal(t, tt.want, cfg.Chunking.Overlap())
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestJobsConfig_ResolvedBackend(t *testing.T) {
	tests := []struct {
		name string
		jobs JobsConfig
		db   string
		want string
	}{
		{"explicit", JobsConfig{Backend: "memory", MongoURL: "mongodb://x"}, "a.db", "memory"},
		{"mongo url", JobsConfig{MongoURL: "mongodb://x"}, "a.db", "mongo"},
		{"sqlite path", JobsConfig{}, "a.db", "sqlite"},
		{"nothing", JobsConfig{}, "", "memory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.jobs.ResolvedBackend(tt.db))
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.Chunking.ChunkOverlap = intPtr(c.Chunking.ChunkSize) }},
		{"negative overlap", func(c *Config) { c.Chunking.ChunkOverlap = intPtr(-1) }},
		{"negative size", func(c *Config) { c.Chunking.ChunkSize = -5 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"unknown vector type", func(c *Config) { c.Vector.Type = "faiss" }},
		{"unknown jobs backend", func(c *Config) { c.Jobs.Backend = "redis" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"QDRANT_URL":      "http://qdrant:6333",
		"COLLECTION_NAME": "handbook",
		"MONGO_URL":       "mongodb://mongo:27017",
		"DATABASE_NAME":   "ragtest",
		"UPLOAD_DIR":      "/tmp/up",
		"HASH_SALT":       "pepper",
		"VECTOR_DB":       "",
	}
	cfg := Default()
	ApplyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "http://qdrant:6333", cfg.Vector.Qdrant.URL)
	assert.Equal(t, "handbook", cfg.Vector.Collection)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Jobs.MongoURL)
	assert.Equal(t, "ragtest", cfg.Jobs.Database)
	assert.Equal(t, "/tmp/up", cfg.Storage.UploadDir)
	assert.Equal(t, "pepper", cfg.Chunking.HashSalt)
	assert.Equal(t, "qdrant", cfg.Vector.Type, "empty values must not override")
	assert.Equal(t, "mongo", cfg.Jobs.ResolvedBackend(cfg.Storage.DatabasePath))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHIORI_DOTENV_VALUE=yes\nSHIORI_DOTENV_KEEP=file\n"), 0600))

	t.Setenv("SHIORI_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("SHIORI_DOTENV_VALUE"))
	t.Setenv("SHIORI_DOTENV_KEEP", "process")

	LoadDotEnv(path)
	assert.Equal(t, "yes", os.Getenv("SHIORI_DOTENV_VALUE"))
	assert.Equal(t, "process", os.Getenv("SHIORI_DOTENV_KEEP"), "existing variables win")

	assert.NotPanics(t, func() { LoadDotEnv(filepath.Join(dir, "missing.env")) })
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Embedding.Timeout = 3 * time.Second
	cfg.Vector.Collection = "notes"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, 3*time.Second, loaded.Embedding.Timeout)
	assert.Equal(t, "notes", loaded.Vector.Collection)
}
