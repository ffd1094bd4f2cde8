package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "~/.local/share/shiori/uploads"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "~/.local/share/shiori/shiori.db"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.Embedding.MaxBatchInputs == 0 {
		cfg.Embedding.MaxBatchInputs = 2048
	}
	if cfg.Embedding.QueryCacheSize == 0 {
		cfg.Embedding.QueryCacheSize = 1000
	}
	if cfg.Embedding.Retry.MaxAttempts == 0 {
		cfg.Embedding.Retry.MaxAttempts = 5
	}
	if cfg.Embedding.Retry.BaseDelay == 0 {
		cfg.Embedding.Retry.BaseDelay = time.Second
	}
	if cfg.Embedding.Retry.MaxDelay == 0 {
		cfg.Embedding.Retry.MaxDelay = 10 * time.Second
	}
	if cfg.Embedding.ONNX.ModelPath == "" {
		cfg.Embedding.ONNX.ModelPath = "~/.local/share/shiori/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.ONNX.Dimensions == 0 {
		cfg.Embedding.ONNX.Dimensions = 384
	}
	if cfg.Embedding.ONNX.MaxTokens == 0 {
		cfg.Embedding.ONNX.MaxTokens = 256
	}
	if cfg.Embedding.ONNX.CacheSize == 0 {
		cfg.Embedding.ONNX.CacheSize = 10000
	}
	if cfg.Embedding.MockDimensions == 0 {
		cfg.Embedding.MockDimensions = 384
	}

	if cfg.Vector.Type == "" {
		cfg.Vector.Type = "qdrant"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "docs"
	}
	if cfg.Vector.Qdrant.Timeout == 0 {
		cfg.Vector.Qdrant.Timeout = 30 * time.Second
	}

	if cfg.Jobs.Database == "" {
		cfg.Jobs.Database = "rag"
	}
	if cfg.Jobs.Collection == "" {
		cfg.Jobs.Collection = "jobs"
	}

	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 2000
	}
	if cfg.Chunking.MaxTableRows == 0 {
		cfg.Chunking.MaxTableRows = 50
	}

	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 8
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 100
	}
	if cfg.Retrieval.SnippetChars == 0 {
		cfg.Retrieval.SnippetChars = 200
	}
	if cfg.Retrieval.AnswerChars == 0 {
		cfg.Retrieval.AnswerChars = 800
	}

	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
