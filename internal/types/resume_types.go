package types

// SectionType 表示简历中可识别的章节类型
type SectionType string

const (
	// SectionProjects 项目经历章节
	SectionProjects SectionType = "PROJECTS"
	// SectionEducation 教育经历章节
	SectionEducation SectionType = "EDUCATION"
	// SectionExperience 工作经历章节
	SectionExperience SectionType = "EXPERIENCE"
	// SectionSummary 个人简介章节
	SectionSummary SectionType = "SUMMARY"
	// SectionSkills 技能章节
	SectionSkills SectionType = "SKILLS"
)

// CandidateProfile 从简历文本中抽取出的候选人信息。
// 所有切片字段均保证非 nil，序列化后为 [] 而不是 null。
type CandidateProfile struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Skills     []string `json:"skills"`
	Projects   []string `json:"projects"`
	Education  []string `json:"education"`
	Experience []string `json:"experience"`
	Summary    string   `json:"summary"`
}

// EmptyProfile 返回所有字段为空的候选人信息
func EmptyProfile() *CandidateProfile {
	return &CandidateProfile{
		Skills:     []string{},
		Projects:   []string{},
		Education:  []string{},
		Experience: []string{},
	}
}

// IsEmpty 判断是否没有抽取到任何信息
func (p *CandidateProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Name == "" && p.Email == "" && p.Phone == "" && p.Summary == "" &&
		len(p.Skills) == 0 && len(p.Projects) == 0 && len(p.Education) == 0 && len(p.Experience) == 0
}
