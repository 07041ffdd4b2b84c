package constants

import "time"

const (
	// ServiceName 服务名，用于日志和链路
	ServiceName = "campus-ml-service"
	// Version 服务版本
	Version = "1.0.0"

	// DefaultResultTTL 解析结果默认保留时间
	DefaultResultTTL = 24 * time.Hour
	// OriginalObjectPrefix 原始简历在对象存储中的前缀
	OriginalObjectPrefix = "originals/"
	// PDFContentType 原始简历的内容类型
	PDFContentType = "application/pdf"
)
