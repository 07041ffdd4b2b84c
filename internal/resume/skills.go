package resume

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// skillsSectionPattern 技能章节：标签后的内容直到空行、以大写字母开头的新行或文本结尾。
// 冒号后只跳过同一行的空白，标签后直接换行视为空章节。
var skillsSectionPattern = regexp.MustCompile(
	`(?is)\b(?:skills?|technical skills?|technologies?):[ \t]*(.*?)(?:\n\n|(?-i:\n[A-Z])|\z)`)

var skillSeparator = regexp.MustCompile(`[,;•\n]`)

// minSkillTokenLen 章节中的技能词长度必须大于该值
const minSkillTokenLen = 2

// skillSet 不区分大小写的有序集合，先插入的写法保留
type skillSet struct {
	index map[string]struct{}
	items []string
}

func newSkillSet() *skillSet {
	return &skillSet{index: make(map[string]struct{})}
}

func (s *skillSet) add(skill string) {
	key := strings.ToLower(skill)
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = struct{}{}
	s.items = append(s.items, skill)
}

func (s *skillSet) list() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}

// parseSkillsSection 解析显式的技能章节，返回原样的技能词
func parseSkillsSection(text string) []string {
	m := skillsSectionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var tokens []string
	for _, tok := range skillSeparator.Split(m[1], -1) {
		tok = strings.TrimSpace(tok)
		if utf8.RuneCountInString(tok) > minSkillTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// ExtractSkills 合并词库扫描结果与技能章节解析结果。
// 词库结果先插入，因此同一技能以词库的标题格式为准。
func ExtractSkills(text string, lexicon *Lexicon) []string {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	set := newSkillSet()
	for _, s := range lexicon.Scan(strings.ToLower(text)) {
		set.add(s)
	}
	for _, s := range parseSkillsSection(text) {
		set.add(s)
	}
	return set.list()
}
