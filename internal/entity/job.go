package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
)

// Job tracks one queued extraction.
type Job struct {
	ID          uuid.UUID           `json:"id"`
	SourcePath  string              `json:"source_path"`
	Status      constants.JobStatus `json:"status"`
	DocumentID  string              `json:"document_id,omitempty"`
	ErrorCode   string              `json:"error_code,omitempty"`
	ErrorTitle  string              `json:"error_title,omitempty"`
	Error       string              `json:"error,omitempty"`
	Retryable   bool                `json:"retryable,omitempty"`
	SubmittedAt time.Time           `json:"submitted_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}
