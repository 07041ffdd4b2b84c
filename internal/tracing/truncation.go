package tracing

import (
	"strings"

	"campus-ml-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxLength span 属性值的默认长度上限(字符)
	DefaultMaxLength = 200
	// MaxRedisKeyLength Redis 键的长度上限
	MaxRedisKeyLength = 100
)

// MaskPII 掩码姓名、邮箱、电话等个人信息，只保留首尾少量字符
//
//	"张三" -> "张*"
//	"王小明" -> "王*明"
//	"jane@example.com" -> "ja************om"
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	keep := 2
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		keep = 1
	}
	return string(runes[:keep]) + strings.Repeat("*", n-2*keep) + string(runes[n-keep:])
}

// TruncateString 超过 maxLength 时保留首尾，中间用 "..." 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeRedisKey Redis 键中带有文件 MD5 等长值，写入 span 前截断
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisKeyLength)
}

// ProfileAttributes 候选人信息的 span 属性，只记录是否命中和数量，不记录原文
func ProfileAttributes(p *types.CandidateProfile) []attribute.KeyValue {
	if p == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool("resume.has_name", p.Name != ""),
		attribute.Bool("resume.has_email", p.Email != ""),
		attribute.Bool("resume.has_phone", p.Phone != ""),
		attribute.Int("resume.skills", len(p.Skills)),
		attribute.Int("resume.projects", len(p.Projects)),
		attribute.Int("resume.education", len(p.Education)),
		attribute.Int("resume.experience", len(p.Experience)),
	}
}
