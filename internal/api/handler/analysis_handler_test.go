package handler_test

import (
	"testing"

	"campus-ml-go/internal/types"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillGapEndpoint(t *testing.T) {
	h := newEngine(&stubParser{}, nil, 10)
	resp := postJSON(h, "/ai/skills/gap", `{"student_skills":["Python","Docker"],"required_skills":["python","kubernetes"]}`)
	require.Equal(t, consts.StatusOK, resp.Code, resp.Body.String())

	var got types.SkillGapResult
	decode(t, resp.Body.Bytes(), &got)
	assert.Equal(t, []string{"Kubernetes"}, got.Missing)
	assert.Equal(t, []string{"Docker"}, got.Strengths)
	assert.Equal(t, 50.0, got.MatchPercentage)
}

func TestRecommendEndpoint(t *testing.T) {
	h := newEngine(&stubParser{}, nil, 10)
	resp := postJSON(h, "/ai/recommend/placements", `{"skills":["go"],"posts":[{"id":"p1","required_skills":["java"]},{"id":"p2","required_skills":["golang"]}]}`)
	require.Equal(t, consts.StatusOK, resp.Code, resp.Body.String())

	var got []types.Recommendation
	decode(t, resp.Body.Bytes(), &got)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].PostID, "匹配度高的岗位在前")

	resp = postJSON(h, "/ai/recommend/placements", `{"skills":["go"],"posts":[{"required_skills":["java"]}]}`)
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "岗位缺少 id 应校验失败")
}

func TestAttendanceEndpoint(t *testing.T) {
	h := newEngine(&stubParser{}, nil, 10)
	resp := postJSON(h, "/ai/attendance/anomaly", `{"records":[]}`)
	require.Equal(t, consts.StatusOK, resp.Code)
	var got types.AttendanceResult
	decode(t, resp.Body.Bytes(), &got)
	assert.Equal(t, types.PatternInsufficientData, got.Pattern)

	resp = postJSON(h, "/ai/attendance/anomaly", `{"records":[{"date":"2024-01-01","status":2}]}`)
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "状态只能为0或1")
	assert.Contains(t, resp.Body.String(), "oneof")
}

func TestRiskEndpoint(t *testing.T) {
	h := newEngine(&stubParser{}, nil, 10)
	resp := postJSON(h, "/ai/risk/predict", `{"attendance":55,"internal_marks":[35,30,38],"skills_count":1,"applications_count":0,"semester":4}`)
	require.Equal(t, consts.StatusOK, resp.Code, resp.Body.String())
	var got types.RiskResult
	decode(t, resp.Body.Bytes(), &got)
	assert.Equal(t, types.RiskHigh, got.RiskLevel)
	assert.Equal(t, 9.5, got.RiskScore)

	resp = postJSON(h, "/ai/risk/predict", `{"attendance":120}`)
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "出勤率超过100应校验失败")
}

func TestAnalysisBadBody(t *testing.T) {
	h := newEngine(&stubParser{}, nil, 10)

	resp := postJSON(h, "/ai/skills/gap", "")
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "空请求体返回400")

	resp = postJSON(h, "/ai/skills/gap", "{not json")
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "非法 JSON 返回400")

	resp = postJSON(h, "/ai/skills/gap", `{"student_skills":["go"]}`)
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "缺少必填字段返回400")
}

func TestSystemEndpoints(t *testing.T) {
	h := newEngine(&stubParser{}, &fakeAsync{}, 10)

	resp := ut.PerformRequest(h.Engine, "GET", "/health", nil)
	require.Equal(t, consts.StatusOK, resp.Code)
	var health map[string]interface{}
	decode(t, resp.Body.Bytes(), &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "pages", health["parser_backend"])
	assert.Equal(t, true, health["async_enabled"])

	resp = ut.PerformRequest(h.Engine, "GET", "/", nil)
	var root map[string]interface{}
	decode(t, resp.Body.Bytes(), &root)
	assert.Equal(t, "running", root["status"])
	assert.Len(t, root["endpoints"], 8)
}
