package resume

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
jane.doe@example.com | 555-123-4567

Summary: Passionate software engineer with experience building scalable backend services.

Skills: Go, Python, Docker, gRPC

Experience: Backend Intern at ACME Corp, built REST API services

Education: B.Tech Computer Science, XYZ University

Projects: Resume parser in Go`

// fakeRecognizer 固定返回结果的人名识别器
type fakeRecognizer struct {
	name  string
	err   error
	calls []string
}

func (f *fakeRecognizer) RecognizePerson(_ context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	return f.name, f.err
}

func TestExtractFullResume(t *testing.T) {
	p := NewExtractor().Extract(context.Background(), sampleResume)

	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "jane.doe@example.com", p.Email)
	assert.Equal(t, "555-123-4567", p.Phone)
	assert.Equal(t, []string{"Python", "Docker", "Rest Api", "gRPC"}, p.Skills, "词库结果在前，章节结果在后，且不重复")
	assert.Equal(t, []string{"Backend Intern at ACME Corp, built REST API services"}, p.Experience)
	assert.Equal(t, []string{"B.Tech Computer Science, XYZ University"}, p.Education)
	assert.Equal(t, []string{"Resume parser in Go"}, p.Projects)
	assert.Equal(t, "Passionate software engineer with experience building scalable backend services.", p.Summary)
}

func TestExtractEmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\n  "} {
		p := NewExtractor().Extract(context.Background(), text)
		require.NotNil(t, p, "空文本也应返回非nil结果")
		assert.True(t, p.IsEmpty(), "空文本所有字段都应为空")
		assert.NotNil(t, p.Skills)
		assert.NotNil(t, p.Projects)
		assert.NotNil(t, p.Education)
		assert.NotNil(t, p.Experience)
	}

	raw, err := json.Marshal(NewExtractor().Extract(context.Background(), ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"","email":"","phone":"","skills":[],"projects":[],"education":[],"experience":[],"summary":""}`, string(raw),
		"空结果序列化后切片应为[]而不是null")
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor()
	first := e.Extract(context.Background(), sampleResume)
	second := e.Extract(context.Background(), sampleResume)
	assert.Equal(t, first, second, "相同输入两次抽取结果应一致")
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@example.com", ExtractEmail("Contact: jane.doe@example.com and backup@foo.org"), "应返回最左侧的邮箱")
	assert.Equal(t, "", ExtractEmail("no email here @ all"))
}

func TestExtractPhoneCascade(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"十位数字优先", "call 1234567890 or +1-234-567-8901", "1234567890"},
		{"分隔符格式", "Phone: 555-123-4567", "555-123-4567"},
		{"点分隔", "Phone: 555.123.4567", "555.123.4567"},
		{"国际格式", "Tel: +1 (234) 567-8901", "1 (234) 567-8901"},
		{"没有电话", "no digits at all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPhone(tt.text))
		})
	}
}

func TestExtractName(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", ExtractName(ctx, "", nil), "空文本没有姓名")
	assert.Equal(t, "John Smith", ExtractName(ctx, "  John Smith  \nEngineer", nil), "没有识别器时使用第一行")

	rec := &fakeRecognizer{name: " Jane Doe "}
	assert.Equal(t, "Jane Doe", ExtractName(ctx, "Jane Doe Resume\nline2", rec))
	assert.Equal(t, []string{"Jane Doe Resume"}, rec.calls, "识别器只处理第一行")

	failing := &fakeRecognizer{err: errors.New("timeout")}
	assert.Equal(t, "Jane Doe Resume", ExtractName(ctx, "Jane Doe Resume\nline2", failing), "识别失败时退回第一行")

	nothing := &fakeRecognizer{}
	assert.Equal(t, "Curriculum Vitae", ExtractName(ctx, "Curriculum Vitae\n", nothing), "识别为空时退回第一行")
}

func TestExtractorUsesRecognizerOption(t *testing.T) {
	rec := &fakeRecognizer{name: "Jane"}
	p := NewExtractor(WithNameRecognizer(rec)).Extract(context.Background(), sampleResume)
	assert.Equal(t, "Jane", p.Name)
}

func TestExtractorWithCustomLexicon(t *testing.T) {
	lex := NewLexicon([]string{"rust", "elixir"})
	p := NewExtractor(WithLexicon(lex)).Extract(context.Background(), "I write Rust and some Python\n")
	assert.Equal(t, []string{"Rust"}, p.Skills, "只应命中自定义词库")
	assert.Same(t, lex, NewExtractor(WithLexicon(lex)).Lexicon())
}

func TestExtractSkillsLexiconAndSectionMerge(t *testing.T) {
	lex := NewLexicon([]string{"python", "java"})
	got := ExtractSkills("Skills: Go, Rust\nExperience in python and java projects", lex)
	assert.Equal(t, []string{"Python", "Java", "Rust"}, got, "Go 长度不足被丢弃，Rust 来自技能章节")
}

func TestExtractSkillsCaseInsensitiveDedup(t *testing.T) {
	got := ExtractSkills("Skills: PYTHON, fastapi", nil)
	assert.Equal(t, []string{"Python", "Fastapi"}, got, "同一技能以词库的写法为准")

	got = ExtractSkills("Skills: Python, Docker, Kubernetes", nil)
	assert.Equal(t, []string{"Python", "Docker", "Kubernetes"}, got)

	seen := map[string]bool{}
	for _, s := range ExtractSkills(sampleResume+"\nTechnologies: docker; PYTHON; Terraform", nil) {
		key := strings.ToLower(s)
		assert.False(t, seen[key], "技能不应重复: %s", s)
		seen[key] = true
	}
}

func TestExtractSkillsSectionSeparators(t *testing.T) {
	got := ExtractSkills("Technical Skills: Terraform; Ansible • Prometheus", NewLexicon([]string{"nothing-matches"}))
	assert.Equal(t, []string{"Terraform", "Ansible", "Prometheus"}, got)
}

func TestExtractSkillsEmptySectionDoesNotSpillOver(t *testing.T) {
	got := ExtractSkills("Skills:\n\nExperience in python and java", NewLexicon([]string{"nothing-matches"}))
	assert.Empty(t, got, "标签后直接空行时不应把下一段当作技能")

	got = ExtractSkills("Skills:\nExperience in python", NewLexicon([]string{"nothing-matches"}))
	assert.Empty(t, got, "标签后换行开始的新段落不属于技能章节")
}

func TestExtractSkillsNoMatches(t *testing.T) {
	got := ExtractSkills("Hobbies: chess", NewLexicon([]string{"cobol"}))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
