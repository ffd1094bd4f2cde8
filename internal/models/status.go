package models

// Status describes the running service and its backends.
type Status struct {
	Embedding EmbeddingStatus `json:"embedding"`
	Vector    VectorStatus    `json:"vector"`
	Jobs      JobsStatus      `json:"jobs"`
	Storage   StorageStatus   `json:"storage"`
}

// EmbeddingStatus names the active embedding model.
type EmbeddingStatus struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// VectorStatus describes the chunk collection. Error is set when the store
// could not be reached; Dimension and Points are then zero.
type VectorStatus struct {
	Store      string `json:"store"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	Points     int    `json:"points"`
	Error      string `json:"error,omitempty"`
}

// JobsStatus names the job ledger backend.
type JobsStatus struct {
	Backend string `json:"backend"`
}

// StorageStatus reports local disk use.
type StorageStatus struct {
	UploadDir     string `json:"upload_dir"`
	PendingFiles  int    `json:"pending_uploads"`
	UploadBytes   int64  `json:"upload_bytes"`
	DatabasePath  string `json:"database_path,omitempty"`
	DatabaseBytes int64  `json:"database_bytes"`
}
