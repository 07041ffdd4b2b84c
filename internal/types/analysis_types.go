package types

// SkillGapRequest 技能差距分析请求
type SkillGapRequest struct {
	StudentSkills  []string `json:"student_skills" validate:"required"`
	RequiredSkills []string `json:"required_skills" validate:"required"`
}

// SkillGapResult 技能差距分析结果
type SkillGapResult struct {
	Missing         []string `json:"missing"`
	Strengths       []string `json:"strengths"`
	MatchPercentage float64  `json:"match_percentage"`
}

// PlacementPost 招聘岗位
type PlacementPost struct {
	ID             string   `json:"id" validate:"required"`
	RequiredSkills []string `json:"required_skills"`
	Company        string   `json:"company"`
	Title          string   `json:"title"`
}

// RecommendRequest 岗位推荐请求
type RecommendRequest struct {
	Skills []string        `json:"skills" validate:"required"`
	Posts  []PlacementPost `json:"posts" validate:"required,dive"`
}

// Recommendation 单个岗位的推荐结果
type Recommendation struct {
	PostID              string  `json:"post_id"`
	Score               float64 `json:"score"`
	Company             string  `json:"company"`
	Title               string  `json:"title"`
	MatchedSkillsCount  int     `json:"matched_skills_count"`
	TotalRequiredSkills int     `json:"total_required_skills"`
}

// AttendanceRecord 单日考勤记录，Status 为 1 表示出勤
type AttendanceRecord struct {
	Date   string `json:"date"`
	Status int    `json:"status" validate:"oneof=0 1"`
}

// AttendanceRequest 考勤异常检测请求
type AttendanceRequest struct {
	Records []AttendanceRecord `json:"records" validate:"dive"`
}

// AttendancePattern 考勤模式
type AttendancePattern string

const (
	PatternInsufficientData AttendancePattern = "insufficient_data"
	PatternRegular          AttendancePattern = "regular"
	PatternMostlyRegular    AttendancePattern = "mostly_regular"
	PatternInconsistent     AttendancePattern = "inconsistent"
	PatternAtRisk           AttendancePattern = "at-risk"
)

// AttendanceResult 考勤异常检测结果
type AttendanceResult struct {
	Pattern        AttendancePattern `json:"pattern"`
	AnomalyDays    []string          `json:"anomaly_days"`
	Confidence     float64           `json:"confidence"`
	AttendanceRate float64           `json:"attendance_rate"`
	TotalDays      int               `json:"total_days"`
	PresentDays    int               `json:"present_days"`
	AbsentDays     int               `json:"absent_days"`
}

// RiskRequest 学业风险预测请求
type RiskRequest struct {
	Attendance        float64   `json:"attendance" validate:"gte=0,lte=100"`
	InternalMarks     []float64 `json:"internal_marks" validate:"dive,gte=0"`
	SkillsCount       int       `json:"skills_count" validate:"gte=0"`
	ApplicationsCount int       `json:"applications_count" validate:"gte=0"`
	Semester          int       `json:"semester" validate:"gte=0"`
}

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskResult 学业风险预测结果
type RiskResult struct {
	RiskLevel       RiskLevel `json:"risk_level"`
	RiskScore       float64   `json:"risk_score"`
	RiskFactors     []string  `json:"risk_factors"`
	Recommendations []string  `json:"recommendations"`
}
