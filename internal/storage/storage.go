// Package storage 异步解析依赖的外部存储：MinIO 保存原始文件，Redis 保存任务状态，RabbitMQ 分发任务
package storage

import (
	"context"
	"errors"
	"fmt"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/logger"
)

// Storage 聚合所有存储依赖
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	Redis    *Redis
}

// NewStorage 初始化全部组件，任一失败都会关闭已建立的连接并返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, errors.New("配置不能为空")
	}
	log := logger.Component("storage")
	s := &Storage{}
	var err error

	if s.MinIO, err = NewMinIO(ctx, &cfg.MinIO); err != nil {
		return nil, fmt.Errorf("初始化MinIO失败: %w", err)
	}

	if s.Redis, err = NewRedisAdapter(ctx, &cfg.Redis); err != nil {
		return nil, fmt.Errorf("初始化Redis失败: %w", err)
	}

	if s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
		s.Close()
		return nil, fmt.Errorf("初始化RabbitMQ失败: %w", err)
	}
	if err = s.RabbitMQ.SetupParseTopology(); err != nil {
		s.Close()
		return nil, fmt.Errorf("声明解析队列失败: %w", err)
	}

	log.Info().Msg("存储组件初始化完成")
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	log := logger.Component("storage")
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
