package resume

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// defaultSkillPhrases 内置技能词库，全部为小写
var defaultSkillPhrases = []string{
	"python", "java", "javascript", "typescript", "react", "node.js", "express",
	"django", "flask", "fastapi", "sql", "postgresql", "mongodb", "redis",
	"docker", "kubernetes", "aws", "azure", "gcp", "git", "github", "gitlab",
	"html", "css", "bootstrap", "tailwind", "vue", "angular", "next.js",
	"machine learning", "deep learning", "tensorflow", "pytorch", "scikit-learn",
	"data science", "pandas", "numpy", "matplotlib", "seaborn",
	"c++", "c#", ".net", "spring", "hibernate", "jpa",
	"rest api", "graphql", "microservices", "ci/cd", "jenkins",
	"linux", "bash", "shell scripting", "agile", "scrum",
}

type lexiconEntry struct {
	phrase  string // 小写规范形式
	display string // 标题格式
}

// Lexicon 只读的技能词库，创建后不再修改，可被多个goroutine并发读取
type Lexicon struct {
	entries []lexiconEntry
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon 返回进程内共享的内置词库
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		defaultLexicon = NewLexicon(defaultSkillPhrases)
	})
	return defaultLexicon
}

// NewLexicon 由技能短语创建词库，短语会被转为小写并去重，保持原有顺序
func NewLexicon(phrases []string) *Lexicon {
	// cases.Caser 不是并发安全的，这里只在构建时使用一次
	caser := cases.Title(language.English)
	seen := make(map[string]struct{}, len(phrases))
	entries := make([]lexiconEntry, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		entries = append(entries, lexiconEntry{phrase: p, display: caser.String(p)})
	}
	return &Lexicon{entries: entries}
}

// lexiconFile 词库文件格式
type lexiconFile struct {
	Skills []string `yaml:"skills"`
}

// LoadLexiconFile 从YAML文件加载词库，文件格式为 skills: [..]
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取技能词库文件失败: %w", err)
	}
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析技能词库文件失败: %w", err)
	}
	if len(f.Skills) == 0 {
		return nil, fmt.Errorf("技能词库文件为空: %s", path)
	}
	return NewLexicon(f.Skills), nil
}

// Len 词库大小
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Phrases 返回词库短语的副本
func (l *Lexicon) Phrases() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.phrase
	}
	return out
}

// Scan 返回在文本中出现的技能（标题格式），顺序与词库一致。
// lowerText 必须已经转为小写。
func (l *Lexicon) Scan(lowerText string) []string {
	var hits []string
	for _, e := range l.entries {
		if strings.Contains(lowerText, e.phrase) {
			hits = append(hits, e.display)
		}
	}
	return hits
}
