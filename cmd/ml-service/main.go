package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-ml-go/internal/agent"
	"campus-ml-go/internal/api/handler"
	"campus-ml-go/internal/api/router"
	"campus-ml-go/internal/config"
	"campus-ml-go/internal/constants"
	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/ner"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/processor"
	"campus-ml-go/internal/ratelimit"
	"campus-ml-go/internal/resume"
	"campus-ml-go/internal/storage"
	"campus-ml-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	initLogger(cfg.Logger)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing, constants.Version)
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续运行: %v", err)
	}

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化解析流水线失败: %v", err)
	}
	glog.Infof("解析流水线初始化成功，词库大小: %d", pipeline.Extractor().Lexicon().Len())

	var (
		async          handler.AsyncParser
		storageManager *storage.Storage
		consumerDone   <-chan struct{}
	)
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.Async.Enabled {
		storageManager, err = storage.NewStorage(ctx, cfg)
		if err != nil {
			glog.Fatalf("初始化存储失败: %v", err)
		}
		defer storageManager.Close()

		svc := processor.NewParseService(pipeline, storageManager.MinIO, storageManager.Redis,
			storageManager.RabbitMQ, cfg.RabbitMQ, processor.WithConsumer(storageManager.RabbitMQ))
		consumerDone, err = svc.StartConsumer(consumerCtx)
		if err != nil {
			glog.Fatalf("启动解析消费者失败: %v", err)
		}
		async = svc
		glog.Infof("异步解析已启用，消费者数: %d", cfg.RabbitMQ.ConsumerWorkers)
	}

	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize((cfg.Server.MaxUploadMB+1)<<20),
		server.WithExitWaitTime(time.Duration(cfg.Server.ExitWaitSecs)*time.Second),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, router.Options{
		APIKey:          cfg.Server.APIKey,
		RequestIDHeader: cfg.Server.RequestIDHead,
		Resume:          handler.NewResumeHandler(pipeline, async, cfg.Server.MaxUploadMB),
		Analysis:        handler.NewAnalysisHandler(),
		System:          handler.NewSystemHandler(cfg.Parser.Backend, async != nil),
	})
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	wait := time.Duration(cfg.Server.ExitWaitSecs) * time.Second
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), wait)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}

	stopConsumer()
	if consumerDone != nil {
		select {
		case <-consumerDone:
			glog.Info("解析消费者已停止")
		case <-shutdownCtx.Done():
			glog.Warn("等待解析消费者退出超时")
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Warnf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化全局日志，并让 Hertz 使用同一个 zerolog 实例
func initLogger(cfg config.LoggerConfig) {
	logger.Init(logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
	})
	glog.SetLogger(hertzadapter.From(logger.Logger))
	if cfg.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	} else {
		glog.SetLevel(glog.LevelInfo)
	}
}

// buildPipeline 组装文本提取器、词库和人名识别
func buildPipeline(ctx context.Context, cfg *config.Config) (*resume.Pipeline, error) {
	textExtractor, err := parser.BuildTextExtractor(ctx, cfg.Parser)
	if err != nil {
		return nil, err
	}

	lexicon := resume.DefaultLexicon()
	if cfg.Lexicon.File != "" {
		if lexicon, err = resume.LoadLexiconFile(cfg.Lexicon.File); err != nil {
			return nil, err
		}
		glog.Infof("已加载自定义词库: %s", cfg.Lexicon.File)
	}

	var recognizer resume.NameRecognizer = ner.Nop{}
	if cfg.NER.Enabled && cfg.Aliyun.APIKey != "" {
		qwen, err := agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
		if err != nil {
			return nil, err
		}
		limited := ratelimit.NewRateLimitedChatModel(qwen, cfg.NER.QPM, 2, 500*time.Millisecond)
		recognizer = ner.NewLLMRecognizer(limited, ner.WithTimeout(time.Duration(cfg.NER.TimeoutSeconds)*time.Second))
		glog.Infof("人名识别已启用，模型: %s", qwen.ModelName())
	} else if cfg.NER.Enabled {
		glog.Warn("人名识别已启用但未配置 API Key，退回到首行规则")
	}

	extractor := resume.NewExtractor(resume.WithLexicon(lexicon), resume.WithNameRecognizer(recognizer))
	return resume.NewPipeline(textExtractor, extractor), nil
}
