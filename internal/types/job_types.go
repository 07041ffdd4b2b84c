package types

import "time"

// JobStatus 异步解析任务状态
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusDone       JobStatus = "DONE"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusDuplicate  JobStatus = "DUPLICATE"
)

// ParseJob 缓存在 Redis 中的异步任务状态
type ParseJob struct {
	JobID      string            `json:"job_id"`
	Filename   string            `json:"filename,omitempty"`
	Status     JobStatus         `json:"status"`
	Profile    *CandidateProfile `json:"profile,omitempty"`
	Error      string            `json:"error,omitempty"`
	SubmitAt   time.Time         `json:"submit_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}
