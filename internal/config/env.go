package config

import (
	"github.com/joho/godotenv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads variables from the given .env files (default ".env") into the
// process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overrides cfg with deployment environment variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	set("OPENAI_BASE_URL", &cfg.Embedding.BaseURL)
	set("PROVIDER", &cfg.Embedding.Provider)
	set("EMBEDDING_MODEL", &cfg.Embedding.Model)
	set("VECTOR_DB", &cfg.Vector.Type)
	set("QDRANT_URL", &cfg.Vector.Qdrant.URL)
	set("QDRANT_API_KEY", &cfg.Vector.Qdrant.APIKey)
	set("COLLECTION_NAME", &cfg.Vector.Collection)
	set("MONGO_URL", &cfg.Jobs.MongoURL)
	set("DATABASE_NAME", &cfg.Jobs.Database)
	set("UPLOAD_DIR", &cfg.Storage.UploadDir)
	set("HASH_SALT", &cfg.Chunking.HashSalt)
}
