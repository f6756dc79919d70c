package constants

// JobStatus is the canonical status of one document in a processing batch.
type JobStatus string

// Stable values (store these exact strings in audit output).
const (
	JobStatusQueued    JobStatus = "QUEUED"     // queued for processing
	JobStatusRunning   JobStatus = "RUNNING"    // in progress
	JobStatusTextOK    JobStatus = "TEXT_OK"    // stage 1 completed (text extracted)
	JobStatusExtractOK JobStatus = "EXTRACT_OK" // stage 2 completed (features extracted)
	JobStatusStored    JobStatus = "STORED"     // committed to the database
	JobStatusFailed    JobStatus = "FAILED"     // terminal failure
)
