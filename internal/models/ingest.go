package models

// IngestMetadata echoes the resolved document identity.
type IngestMetadata struct {
	Filename   string     `json:"filename"`
	SourceType SourceType `json:"source_type"`
}

// IngestResponse is returned for every ingestion that got as far as creating a job.
type IngestResponse struct {
	JobID    string         `json:"job_id"`
	Status   JobStatus      `json:"status"`
	Stats    JobStats       `json:"stats"`
	Metadata IngestMetadata `json:"metadata"`
}
