package parser

import (
	"context"
	"fmt"
	"time"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/logger"
)

// BuildTextExtractor 根据配置返回合适的文本提取器实现
func BuildTextExtractor(ctx context.Context, cfg config.ParserConfig) (TextExtractor, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Backend {
	case "", BackendPages:
		logger.Info().Str("backend", BackendPages).Msg("使用逐页容错的PDF解析器")
		return NewPagedPDFExtractor(WithPagedTimeout(timeout)), nil
	case BackendEino:
		logger.Info().Str("backend", BackendEino).Msg("使用Eino PDF解析器")
		return NewEinoPDFTextExtractor(ctx, WithEinoTimeout(timeout))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Backend)
	}
}
