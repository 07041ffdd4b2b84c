package handler

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/processor"
	"campus-ml-go/internal/storage"
	"campus-ml-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AsyncParser 异步解析服务
type AsyncParser interface {
	Submit(ctx context.Context, filename string, data []byte) (*types.ParseJob, error)
	GetJob(ctx context.Context, jobID string) (*types.ParseJob, error)
}

// ResumeHandler 简历解析接口
type ResumeHandler struct {
	parser   processor.DocumentParser
	async    AsyncParser
	maxBytes int64
}

// NewResumeHandler 创建处理器。async 为 nil 时异步接口返回 503。
func NewResumeHandler(p processor.DocumentParser, async AsyncParser, maxUploadMB int) *ResumeHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &ResumeHandler{
		parser:   p,
		async:    async,
		maxBytes: int64(maxUploadMB) << 20,
	}
}

// ParseJobResponse 异步任务响应
type ParseJobResponse struct {
	JobID   string                  `json:"job_id"`
	Status  types.JobStatus         `json:"status"`
	Profile *types.CandidateProfile `json:"profile,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// readPDFUpload 读取表单中的 file 字段，只接受 .pdf 文件
func (h *ResumeHandler) readPDFUpload(c *app.RequestContext) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, consts.StatusBadRequest, "缺少上传文件字段 file")
		return "", nil, false
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		writeError(c, consts.StatusBadRequest, "Only PDF files are supported")
		return "", nil, false
	}
	if fileHeader.Size > h.maxBytes {
		writeError(c, consts.StatusRequestEntityTooLarge, "文件过大")
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, consts.StatusInternalServerError, "打开文件失败")
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		writeError(c, consts.StatusInternalServerError, "读取文件失败")
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

// Parse 同步解析上传的 PDF
func (h *ResumeHandler) Parse(ctx context.Context, c *app.RequestContext) {
	filename, data, ok := h.readPDFUpload(c)
	if !ok {
		return
	}

	profile, err := h.parser.ParseDocument(ctx, data, filename)
	if err != nil {
		if parser.IsParseError(err) {
			logger.Ctx(ctx).Warn().Err(err).Str("filename", filename).Msg("简历解析失败")
			writeError(c, consts.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("filename", filename).Msg("简历解析出错")
		writeError(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(consts.StatusOK, profile)
}

// ParseAsync 提交异步解析任务
func (h *ResumeHandler) ParseAsync(ctx context.Context, c *app.RequestContext) {
	if h.async == nil {
		writeError(c, consts.StatusServiceUnavailable, "异步解析未启用")
		return
	}
	filename, data, ok := h.readPDFUpload(c)
	if !ok {
		return
	}

	job, err := h.async.Submit(ctx, filename, data)
	if err != nil {
		if errors.Is(err, processor.ErrEmptyFile) {
			writeError(c, consts.StatusBadRequest, err.Error())
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("filename", filename).Msg("提交解析任务失败")
		writeError(c, consts.StatusInternalServerError, "提交解析任务失败")
		return
	}

	status := consts.StatusAccepted
	if job.Status == types.JobStatusDuplicate {
		status = consts.StatusOK
	}
	c.JSON(status, ParseJobResponse{JobID: job.JobID, Status: job.Status})
}

// GetJob 查询异步任务
func (h *ResumeHandler) GetJob(ctx context.Context, c *app.RequestContext) {
	if h.async == nil {
		writeError(c, consts.StatusServiceUnavailable, "异步解析未启用")
		return
	}
	jobID := c.Param("id")
	job, err := h.async.GetJob(ctx, jobID)
	if errors.Is(err, storage.ErrJobNotFound) {
		writeError(c, consts.StatusNotFound, "任务不存在或已过期")
		return
	}
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("查询任务失败")
		writeError(c, consts.StatusInternalServerError, "查询任务失败")
		return
	}
	c.JSON(consts.StatusOK, ParseJobResponse{
		JobID:   job.JobID,
		Status:  job.Status,
		Profile: job.Profile,
		Error:   job.Error,
	})
}
