package constants

// JobStatus is the lifecycle of one queued extraction.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED" // terminal
)

// Side names one of the two transaction collections.
type Side string

const (
	SideLedger    Side = "ledger"
	SideDocuments Side = "documents"
)

func (s Side) Valid() bool {
	return s == SideLedger || s == SideDocuments
}
