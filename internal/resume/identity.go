package resume

import (
	"context"
	"regexp"
	"strings"
)

// maxNameLines 姓名只从开头几行中识别
const maxNameLines = 5

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

// phonePatterns 按优先级排列，前面的模式命中后不再尝试后面的模式
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{10}\b`),
	regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
	regexp.MustCompile(`\b\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
}

// NameRecognizer 人名实体识别器，返回文本中的第一个人名
type NameRecognizer interface {
	RecognizePerson(ctx context.Context, text string) (string, error)
}

// fieldMatcher 级联中的一个匹配步骤
type fieldMatcher func(ctx context.Context, text string) (string, bool)

// runCascade 依次执行匹配步骤，返回第一个成功的结果
func runCascade(ctx context.Context, text string, matchers []fieldMatcher) string {
	for _, m := range matchers {
		if v, ok := m(ctx, text); ok {
			return v
		}
	}
	return ""
}

func regexpMatcher(re *regexp.Regexp) fieldMatcher {
	return func(_ context.Context, text string) (string, bool) {
		m := re.FindString(text)
		return m, m != ""
	}
}

// phoneMatchers 电话号码级联
var phoneMatchers = func() []fieldMatcher {
	ms := make([]fieldMatcher, 0, len(phonePatterns))
	for _, re := range phonePatterns {
		ms = append(ms, regexpMatcher(re))
	}
	return ms
}()

// ExtractEmail 返回文本中最左侧的邮箱地址
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ExtractPhone 返回第一个命中模式的最左侧电话号码
func ExtractPhone(text string) string {
	return runCascade(context.Background(), text, phoneMatchers)
}

// firstLines 返回前n行
func firstLines(text string, n int) []string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// ExtractName 识别姓名：优先使用识别器处理第一行，失败时退回到第一行文本本身
func ExtractName(ctx context.Context, text string, recognizer NameRecognizer) string {
	if text == "" {
		return ""
	}
	first := firstLines(text, maxNameLines)[0]

	matchers := make([]fieldMatcher, 0, 2)
	if recognizer != nil {
		matchers = append(matchers, func(ctx context.Context, line string) (string, bool) {
			name, err := recognizer.RecognizePerson(ctx, line)
			if err != nil {
				return "", false
			}
			name = strings.TrimSpace(name)
			return name, name != ""
		})
	}
	matchers = append(matchers, func(_ context.Context, line string) (string, bool) {
		return strings.TrimSpace(line), true
	})
	return runCascade(ctx, first, matchers)
}
