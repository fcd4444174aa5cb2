// Package forge is the client side of the Layer.ai generative-asset API:
// a GraphQL control plane for submitting and polling generation jobs, and a
// plain-HTTP data plane for moving artifact bytes through pre-authorized
// URLs. The orchestrator in this package drives one job from submission to a
// terminal outcome.
package forge

// Status is the lifecycle state of a generation job as reported by the
// remote service. Statuses move monotonically toward a terminal state; the
// service owns all transitions and this client only observes them.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusComplete  Status = "COMPLETE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

// ParseStatus maps a remote status string onto the known set. Anything
// unrecognized becomes StatusUnknown, which is treated as non-terminal.
func ParseStatus(value string) Status {
	switch value {
	case "PENDING", "QUEUED":
		return StatusPending
	case "RUNNING", "IN_PROGRESS":
		return StatusRunning
	case "COMPLETE":
		return StatusComplete
	case "FAILED":
		return StatusFailed
	case "CANCELLED":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further polling can change the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// OutputFile is one artifact produced by a completed job.
type OutputFile struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Job is the observed state of one generation job.
type Job struct {
	ID     string
	Status Status
	Files  []OutputFile
}

// UploadSlot is one pre-authorized upload target issued by the control plane.
type UploadSlot struct {
	URL    string `json:"url"`
	FileID string `json:"fileId"`
}

// UploadedFile maps a local path to its remote reference for the duration of
// one job submission. It is never cached across jobs.
type UploadedFile struct {
	LocalPath    string
	RemoteURL    string
	RemoteFileID string
}

// RawImage is a directly returned image artifact (background removal).
type RawImage struct {
	URI         string `json:"uri"`
	ContentType string `json:"contentType"`
}
