package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-ml-go/internal/analysis"
	"campus-ml-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"
)

// AnalysisHandler 技能差距、岗位推荐、考勤和风险分析接口
type AnalysisHandler struct {
	validate *validator.Validate
}

func NewAnalysisHandler() *AnalysisHandler {
	return &AnalysisHandler{validate: validator.New()}
}

// bind 解析 JSON 请求体并校验，失败时写入 400
func (h *AnalysisHandler) bind(c *app.RequestContext, req interface{}) bool {
	body := c.Request.Body()
	if len(body) == 0 {
		writeError(c, consts.StatusBadRequest, "请求体不能为空")
		return false
	}
	if err := decodeJSON(body, req); err != nil {
		writeError(c, consts.StatusBadRequest, "请求体格式错误: "+err.Error())
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(c, consts.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// SkillGap POST /ai/skills/gap
func (h *AnalysisHandler) SkillGap(ctx context.Context, c *app.RequestContext) {
	var req types.SkillGapRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(consts.StatusOK, analysis.AnalyzeSkillGap(req.StudentSkills, req.RequiredSkills))
}

// Recommend POST /ai/recommend/placements
func (h *AnalysisHandler) Recommend(ctx context.Context, c *app.RequestContext) {
	var req types.RecommendRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(consts.StatusOK, analysis.RecommendPlacements(req.Skills, req.Posts))
}

// Attendance POST /ai/attendance/anomaly
func (h *AnalysisHandler) Attendance(ctx context.Context, c *app.RequestContext) {
	var req types.AttendanceRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(consts.StatusOK, analysis.DetectAttendanceAnomalies(req.Records))
}

// Risk POST /ai/risk/predict
func (h *AnalysisHandler) Risk(ctx context.Context, c *app.RequestContext) {
	var req types.RiskRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(consts.StatusOK, analysis.PredictRisk(req))
}
