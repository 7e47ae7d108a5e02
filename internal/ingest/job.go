// Package ingest is the document-ingestion pipeline: uploaded documents are
// chunked, embedded, and written to the vector store by the worker.
package ingest

// Document processing states, stored on the documents row.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// Job is the unit of work the gateway enqueues and the worker consumes.
type Job struct {
	ID         string `json:"job_id"`
	UserID     string `json:"user_id"`
	DocumentID int64  `json:"document_id"`
}
