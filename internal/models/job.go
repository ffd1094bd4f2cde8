package models

import "time"

// JobStatus is the state of an ingestion job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStats summarizes a finished ingestion. Tokens is null when the provider does not report it.
type JobStats struct {
	Chunks int  `json:"chunks" bson:"chunks"`
	Tokens *int `json:"tokens" bson:"tokens"`
}

// Job is the ledger record of one ingestion attempt.
type Job struct {
	ID         string    `json:"id" bson:"id"`
	SourceType string    `json:"source_type" bson:"source_type"`
	Status     JobStatus `json:"status" bson:"status"`
	Stats      JobStats  `json:"stats" bson:"stats"`
	Error      *string   `json:"error" bson:"error"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// JobUpdate lists the fields to merge into a job. Nil fields are left untouched.
type JobUpdate struct {
	Status *JobStatus
	Stats  *JobStats
	Error  *string
}

// Completed returns the update that closes a job successfully.
func Completed(stats JobStats) JobUpdate {
	s := JobCompleted
	return JobUpdate{Status: &s, Stats: &stats}
}

// Failed returns the update that closes a job with msg.
func Failed(msg string) JobUpdate {
	s := JobFailed
	return JobUpdate{Status: &s, Error: &msg}
}
