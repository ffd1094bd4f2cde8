// Package config provides configuration loading and structs for the shiori server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. It is built once at
// startup and handed to each component constructor.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds local paths.
type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxBatchInputs    int           `yaml:"max_batch_inputs"`
	QueryCacheSize    int           `yaml:"query_cache_size"`
	Retry             RetryConfig   `yaml:"retry"`
	ONNX              ONNXConfig    `yaml:"onnx"`
	MockDimensions    int           `yaml:"mock_dimensions"`
}

// RetryConfig bounds retries of transient provider failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// ONNXConfig holds local ONNX embedder settings.
type ONNXConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Type            string       `yaml:"type"`
	Collection      string       `yaml:"collection"`
	StrictDimension bool         `yaml:"strict_dimension"`
	Qdrant          QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant HTTP API settings.
type QdrantConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// JobsConfig selects the job ledger backend. An empty Backend picks mongo when
// MongoURL is set, sqlite otherwise.
type JobsConfig struct {
	Backend    string `yaml:"backend"`
	MongoURL   string `yaml:"mongo_url"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ResolvedBackend returns the backend that will be used.
func (j JobsConfig) ResolvedBackend(databasePath string) string {
	if j.Backend != "" {
		return j.Backend
	}
	if j.MongoURL != "" {
		return "mongo"
	}
	if databasePath != "" {
		return "sqlite"
	}
	return "memory"
}

// ChunkingConfig holds chunking parameters. Sizes are in characters.
type ChunkingConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap *int   `yaml:"chunk_overlap"`
	MaxTableRows int    `yaml:"max_table_rows"`
	HashSalt     string `yaml:"hash_salt"`
}

// Overlap returns the configured overlap; when unset it is an eighth of ChunkSize
// (250 for the default 2000).
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return c.ChunkSize / 8
}

// RetrievalConfig holds query defaults.
type RetrievalConfig struct {
	DefaultTopK  int `yaml:"default_top_k"`
	MaxTopK      int `yaml:"max_top_k"`
	SnippetChars int `yaml:"snippet_chars"`
	AnswerChars  int `yaml:"answer_chars"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Environment overrides are not applied; see ApplyEnv.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with every default applied, as used when no file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	expandPaths(&cfg, "")
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that no component can run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if overlap := c.Chunking.Overlap(); overlap < 0 || overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", overlap)
	}
	switch c.Embedding.Provider {
	case "openai", "onnx", "mock":
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Vector.Type {
	case "qdrant", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown vector.type %q", c.Vector.Type)
	}
	switch c.Jobs.Backend {
	case "", "mongo", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown jobs.backend %q", c.Jobs.Backend)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ONNX.ModelPath = expandPath(cfg.Embedding.ONNX.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
