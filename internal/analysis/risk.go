package analysis

import (
	"math"

	"campus-ml-go/internal/types"
)

// 风险阈值
const (
	attendanceHighRisk   = 65.0
	attendanceMediumRisk = 60.0
	attendanceLow        = 70.0
	attendanceAdvice     = 75.0
	attendanceNoData     = 100.0 // 100% 表示没有考勤数据，不计入风险

	marksLow        = 40.0
	marksMedium     = 55.0
	marksAdvice     = 60.0
	marksDeclineGap = 12.0

	skillsLow          = 2
	skillsAdvice       = 5
	applicationsLow    = 1
	applicationsAdvice = 2

	seniorSemester = 3
	earlySemester  = 2

	highRiskScore   = 5
	mediumRiskScore = 3
)

// PredictRisk 基于规则计算学业风险等级并给出建议
func PredictRisk(req types.RiskRequest) types.RiskResult {
	factors := make([]string, 0)
	score := 0.0

	switch {
	case req.Attendance < attendanceHighRisk && req.Attendance < attendanceNoData:
		if req.Attendance < attendanceMediumRisk {
			factors = append(factors, "Very low attendance (below 60%)")
			score += 5.0
		} else {
			factors = append(factors, "Low attendance (60-65%)")
			score += 3.0
		}
	case req.Attendance < attendanceLow && req.Attendance < attendanceNoData:
		factors = append(factors, "Low attendance")
		score += 1.5
	}

	if len(req.InternalMarks) > 0 {
		avg := mean(req.InternalMarks)
		switch {
		case avg < marksLow:
			factors = append(factors, "Very low academic performance")
			score += 2.5
		case avg < marksMedium:
			factors = append(factors, "Below average academic performance")
			score += 1.5
		}

		if n := len(req.InternalMarks); n >= 3 {
			recent := mean(req.InternalMarks[n-2:])
			earlier := mean(req.InternalMarks[:n-2])
			if recent < earlier-marksDeclineGap {
				factors = append(factors, "Declining academic performance")
				score += 1
			}
		}
	} else if req.Semester > earlySemester {
		factors = append(factors, "No assessment data available")
		score += 0.5
	}

	// 没有上传简历时技能数为0，不计入风险
	if req.SkillsCount > 0 && req.SkillsCount < skillsLow {
		factors = append(factors, "Limited technical skills")
		score += 1
	}

	if req.Semester >= seniorSemester && req.ApplicationsCount < applicationsLow {
		factors = append(factors, "No placement applications")
		score += 0.5
	}

	if req.Semester >= seniorSemester && score >= mediumRiskScore {
		score += 0.5
	}

	// 与银行家舍入保持一致：2.5 -> 2，4.5 -> 4
	level := types.RiskLow
	switch rounded := math.RoundToEven(score); {
	case rounded >= highRiskScore:
		level = types.RiskHigh
	case rounded >= mediumRiskScore:
		level = types.RiskMedium
	}

	return types.RiskResult{
		RiskLevel:       level,
		RiskScore:       roundTo(score, 1),
		RiskFactors:     factors,
		Recommendations: riskRecommendations(level, req),
	}
}

func riskRecommendations(level types.RiskLevel, req types.RiskRequest) []string {
	recs := make([]string, 0)

	switch {
	case req.Attendance < attendanceMediumRisk:
		recs = append(recs,
			"URGENT: Attendance is critically low (below 60%). Immediate action required",
			"Contact faculty or HOD immediately to discuss attendance issues",
			"Attend all remaining classes to improve attendance percentage",
		)
	case req.Attendance < attendanceHighRisk:
		recs = append(recs,
			"WARNING: Attendance is low (60-65%). Action needed",
			"Contact faculty or HOD to discuss attendance improvement",
			"Attend all remaining classes to improve attendance percentage",
		)
	case req.Attendance < attendanceAdvice:
		recs = append(recs,
			"Improve attendance by attending all classes regularly",
			"Contact faculty or HOD if facing attendance issues",
		)
	}

	if len(req.InternalMarks) > 0 && mean(req.InternalMarks) < marksAdvice {
		recs = append(recs,
			"Focus on improving academic performance",
			"Seek help from faculty or tutoring services",
			"Review and practice course materials regularly",
		)
	}

	if req.SkillsCount < skillsAdvice {
		recs = append(recs,
			"Develop technical skills through online courses or projects",
			"Participate in coding competitions or hackathons",
			"Build portfolio projects to showcase skills",
		)
	}

	if req.ApplicationsCount < applicationsAdvice {
		recs = append(recs,
			"Start applying to placement opportunities",
			"Prepare resume and cover letters",
			"Attend placement preparation workshops",
		)
	}

	if level == types.RiskHigh {
		recs = append(recs,
			"Schedule a meeting with academic advisor or HOD",
			"Consider additional support services or counseling",
		)
	}

	if len(recs) == 0 {
		recs = append(recs,
			"Continue maintaining good academic performance",
			"Keep building skills and applying to opportunities",
		)
	}
	return recs
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
