// Package analysis 基于规则的学生数据分析：技能差距、岗位推荐、考勤异常和学业风险
package analysis

import (
	"math"
	"strings"

	"campus-ml-go/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// normalizeSkills 转小写并去除首尾空白
func normalizeSkills(skills []string) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// skillsMatch 双向子串匹配
func skillsMatch(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func matchesAny(skill string, pool []string) bool {
	for _, p := range pool {
		if skillsMatch(skill, p) {
			return true
		}
	}
	return false
}

// roundTo 四舍五入到指定小数位
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// AnalyzeSkillGap 比较学生技能与岗位要求。
// missing 为没有匹配的要求技能，strengths 为没有对应要求的学生技能，均为标题格式。
func AnalyzeSkillGap(studentSkills, requiredSkills []string) types.SkillGapResult {
	student := normalizeSkills(studentSkills)
	required := normalizeSkills(requiredSkills)
	caser := cases.Title(language.English)

	missing := make([]string, 0)
	for _, r := range required {
		if !matchesAny(r, student) {
			missing = append(missing, caser.String(r))
		}
	}

	strengths := make([]string, 0)
	for _, s := range student {
		if !matchesAny(s, required) {
			strengths = append(strengths, caser.String(s))
		}
	}

	pct := 100.0
	if len(required) > 0 {
		matched := len(required) - len(missing)
		pct = float64(matched) / float64(len(required)) * 100
	}

	return types.SkillGapResult{
		Missing:         missing,
		Strengths:       strengths,
		MatchPercentage: roundTo(pct, 2),
	}
}
