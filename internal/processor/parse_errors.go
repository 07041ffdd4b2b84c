package processor

import (
	"errors"
	"fmt"
)

// 基础错误
var (
	ErrEmptyFile        = errors.New("上传文件为空")
	ErrArchiveFailed    = errors.New("保存原始文件失败")
	ErrJobStoreFailed   = errors.New("更新任务状态失败")
	ErrPublishFailed    = errors.New("发布解析任务失败")
	ErrDedupFailed      = errors.New("文件去重失败")
	ErrConsumerDisabled = errors.New("未配置消息消费者")
)

// ParseJobError 带任务上下文的错误
type ParseJobError struct {
	JobID   string
	Op      string
	BaseErr error
	Detail  string
}

func (e *ParseJobError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 任务:%s): %s", e.BaseErr, e.Op, e.JobID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 任务:%s)", e.BaseErr, e.Op, e.JobID)
}

func (e *ParseJobError) Unwrap() error {
	return e.BaseErr
}

// Is 支持 errors.Is 比较基础错误
func (e *ParseJobError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newJobError(jobID, op string, base error, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ParseJobError{JobID: jobID, Op: op, BaseErr: base, Detail: detail}
}
