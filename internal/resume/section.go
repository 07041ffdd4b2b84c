package resume

import (
	"regexp"
	"strings"

	"campus-ml-go/internal/types"
)

// SectionSpec 描述一个有界章节抽取：标签、终止标签、单条长度上限与条数上限
type SectionSpec struct {
	Type       types.SectionType
	Labels     []string
	StopLabels []string
	MaxLen     int
	MaxEntries int

	pattern *regexp.Regexp
}

// newSectionSpec 编译章节匹配模式。
// 标签后同一行的空白会被跳过，但不会跨行，这样空章节紧跟下一个标题时捕获为空。
func newSectionSpec(t types.SectionType, labels, stops []string, maxLen, maxEntries int) *SectionSpec {
	expr := `(?is)\b(?:` + joinQuoted(labels) + `)s?:[ \t]*(.*?)` +
		`(?:\n[ \t]*\n|\n[ \t]*(?:` + joinQuoted(stops) + `)|\z)`
	return &SectionSpec{
		Type:       t,
		Labels:     labels,
		StopLabels: stops,
		MaxLen:     maxLen,
		MaxEntries: maxEntries,
		pattern:    regexp.MustCompile(expr),
	}
}

func joinQuoted(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

var (
	projectsSpec = newSectionSpec(types.SectionProjects,
		[]string{"project"}, []string{"education", "experience", "skills"}, 200, 5)
	educationSpec = newSectionSpec(types.SectionEducation,
		[]string{"education", "degree", "university", "college"}, []string{"experience", "skills", "projects"}, 200, 3)
	experienceSpec = newSectionSpec(types.SectionExperience,
		[]string{"experience", "work", "employment"}, []string{"education", "skills", "projects"}, 200, 5)
	summarySpec = newSectionSpec(types.SectionSummary,
		[]string{"summary", "objective", "about"}, []string{"education", "experience", "skills"}, 300, 1)
)

// summaryFallbackPattern 没有标签时，取文本开头到第一个空行或章节标题之间的段落
var summaryFallbackPattern = regexp.MustCompile(
	`(?is)\A(.{0,300}?)(?:\n\n|\n(?:education|experience|skills))`)

// minLabelledSummaryLen 带标签的简介必须长于该值才会被采用
const minLabelledSummaryLen = 50

// truncateRunes 按字符截断
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Extract 返回所有非空捕获，每条截断到 MaxLen，最多 MaxEntries 条
func (s *SectionSpec) Extract(text string) []string {
	out := make([]string, 0, s.MaxEntries)
	for _, m := range s.pattern.FindAllStringSubmatchIndex(text, -1) {
		if len(out) >= s.MaxEntries {
			break
		}
		captured := strings.TrimSpace(text[m[2]:m[3]])
		if captured == "" {
			continue
		}
		out = append(out, truncateRunes(captured, s.MaxLen))
	}
	return out
}

// ExtractProjects 项目经历，最多5条
func ExtractProjects(text string) []string { return projectsSpec.Extract(text) }

// ExtractEducation 教育经历，最多3条
func ExtractEducation(text string) []string { return educationSpec.Extract(text) }

// ExtractExperience 工作经历，最多5条
func ExtractExperience(text string) []string { return experienceSpec.Extract(text) }

// ExtractSummary 个人简介。
// 先找第一个长度超过50的带标签简介，找不到时退回到开头段落。
func ExtractSummary(text string) string {
	for _, m := range summarySpec.pattern.FindAllStringSubmatchIndex(text, -1) {
		captured := strings.TrimSpace(text[m[2]:m[3]])
		if len([]rune(captured)) > minLabelledSummaryLen {
			return truncateRunes(captured, summarySpec.MaxLen)
		}
	}
	if m := summaryFallbackPattern.FindStringSubmatch(text); m != nil {
		return truncateRunes(strings.TrimSpace(m[1]), summarySpec.MaxLen)
	}
	return ""
}
