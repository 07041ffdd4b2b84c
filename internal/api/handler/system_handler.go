package handler

import (
	"context"

	"campus-ml-go/internal/constants"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Endpoints 对外公布的接口列表
var Endpoints = []string{
	"POST /ai/resume/parse",
	"POST /ai/resume/parse/async",
	"GET /ai/resume/jobs/:id",
	"POST /ai/skills/gap",
	"POST /ai/recommend/placements",
	"POST /ai/attendance/anomaly",
	"POST /ai/risk/predict",
	"GET /health",
}

// SystemHandler 服务信息和健康检查
type SystemHandler struct {
	asyncEnabled bool
	backend      string
}

func NewSystemHandler(backend string, asyncEnabled bool) *SystemHandler {
	return &SystemHandler{asyncEnabled: asyncEnabled, backend: backend}
}

// Root GET /
func (h *SystemHandler) Root(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"service":   constants.ServiceName,
		"version":   constants.Version,
		"status":    "running",
		"endpoints": Endpoints,
	})
}

// Health GET /health
func (h *SystemHandler) Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":         "healthy",
		"parser_backend": h.backend,
		"async_enabled":  h.asyncEnabled,
	})
}
