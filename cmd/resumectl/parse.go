package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/resume"
	"campus-ml-go/internal/types"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	parseWorkers int
	parseBackend string
	parseLexicon string
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "解析一个或多个 PDF 简历，按输入顺序输出 JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().IntVarP(&parseWorkers, "workers", "w", 4, "并发解析的文件数")
	parseCmd.Flags().StringVar(&parseBackend, "backend", "", "文本提取后端 (pages 或 eino)，覆盖配置文件")
	parseCmd.Flags().StringVar(&parseLexicon, "lexicon", "", "技能词库 YAML 文件，覆盖配置文件")
	rootCmd.AddCommand(parseCmd)
}

// fileResult 单个文件的解析结果
type fileResult struct {
	File    string                  `json:"file"`
	Profile *types.CandidateProfile `json:"profile,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if parseBackend != "" {
		cfg.Parser.Backend = parseBackend
	}
	if parseLexicon != "" {
		cfg.Lexicon.File = parseLexicon
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	textExtractor, err := parser.BuildTextExtractor(ctx, cfg.Parser)
	if err != nil {
		return err
	}
	lexicon := resume.DefaultLexicon()
	if cfg.Lexicon.File != "" {
		if lexicon, err = resume.LoadLexiconFile(cfg.Lexicon.File); err != nil {
			return err
		}
	}
	pipeline := resume.NewPipeline(textExtractor, resume.NewExtractor(resume.WithLexicon(lexicon)))

	results := make([]fileResult, len(args))
	g, gCtx := errgroup.WithContext(ctx)
	if parseWorkers > 0 {
		g.SetLimit(parseWorkers)
	}
	for i, path := range args {
		g.Go(func() error {
			results[i] = parseFile(gCtx, pipeline, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if len(results) == 1 && results[0].Error == "" {
		return enc.Encode(results[0].Profile)
	}
	if err := enc.Encode(results); err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != "" {
			return fmt.Errorf("部分文件解析失败")
		}
	}
	return nil
}

// parseFile 失败不中断其他文件
func parseFile(ctx context.Context, p *resume.Pipeline, path string) fileResult {
	res := fileResult{File: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	profile, err := p.ParseDocument(ctx, data, filepath.Base(path))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Profile = profile
	return res
}
