package storage

import "time"

// ParseJobMessage 异步解析任务消息，原始文件已存入对象存储
type ParseJobMessage struct {
	JobID       string    `json:"job_id"`
	Filename    string    `json:"filename"`
	ObjectKey   string    `json:"object_key"`         // MinIO 中的对象路径
	FileMD5     string    `json:"file_md5,omitempty"` // 失败时用于释放去重记录
	SubmittedAt time.Time `json:"submitted_at"`
	RequestID   string    `json:"request_id,omitempty"`
}
