// Package router 注册 HTTP 路由和中间件
package router

import (
	"campus-ml-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app/server"
)

// Options 路由依赖
type Options struct {
	APIKey          string
	RequestIDHeader string
	Resume          *handler.ResumeHandler
	Analysis        *handler.AnalysisHandler
	System          *handler.SystemHandler
}

// RegisterRoutes 注册全部路由，/ai 下的接口需要 API Key
func RegisterRoutes(h *server.Hertz, opts Options) {
	h.Use(RequestID(opts.RequestIDHeader), AccessLog())

	h.GET("/", opts.System.Root)
	h.GET("/health", opts.System.Health)

	ai := h.Group("/ai", APIKeyAuth(opts.APIKey))
	{
		ai.POST("/resume/parse", opts.Resume.Parse)
		ai.POST("/resume/parse/async", opts.Resume.ParseAsync)
		ai.GET("/resume/jobs/:id", opts.Resume.GetJob)

		ai.POST("/skills/gap", opts.Analysis.SkillGap)
		ai.POST("/recommend/placements", opts.Analysis.Recommend)
		ai.POST("/attendance/anomaly", opts.Analysis.Attendance)
		ai.POST("/risk/predict", opts.Analysis.Risk)
	}
}
