// Package agent 对接通义千问 OpenAI 兼容接口的 ChatModel 实现
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	DefaultQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultQwenModel  = "qwen-turbo"

	defaultHTTPTimeout = 30 * time.Second
	maxLoggedBody      = 512
)

// ErrStreamNotSupported 兼容接口暂不支持流式输出
var ErrStreamNotSupported = errors.New("qwen chat model: stream not supported")

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIRequestMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type chatCompletionRequest struct {
	Model       string                 `json:"model"`
	Messages    []openAIRequestMessage `json:"messages"`
	Tools       []openAITool           `json:"tools,omitempty"`
	Temperature *float32               `json:"temperature,omitempty"`
	MaxTokens   *int                   `json:"max_tokens,omitempty"`
}

type toolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string         `json:"role"`
			Content   *string        `json:"content"`
			ToolCalls []toolCallData `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// AliyunQwenChatModel 通义千问兼容接口的 ChatModel
type AliyunQwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	tools      []openAITool
	log        zerolog.Logger
}

// QwenOption 模型配置项
type QwenOption func(*AliyunQwenChatModel)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(c *http.Client) QwenOption {
	return func(m *AliyunQwenChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// NewAliyunQwenChatModel 创建模型，modelName 和 apiURL 为空时使用默认值
func NewAliyunQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*AliyunQwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultQwenModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultQwenAPIURL
	}

	m := &AliyunQwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        logger.Component("qwen_model"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log.Info().Str("api_url", apiURL).Str("model", modelName).Msg("通义千问客户端已创建")
	return m, nil
}

// ModelName 当前使用的模型名
func (m *AliyunQwenChatModel) ModelName() string { return m.modelName }

// Generate 同步调用补全接口
func (m *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{}, opts...)

	req := chatCompletionRequest{
		Model:       m.modelName,
		Messages:    make([]openAIRequestMessage, 0, len(messages)),
		Tools:       m.tools,
		Temperature: common.Temperature,
		MaxTokens:   common.MaxTokens,
	}
	if common.Model != nil && *common.Model != "" {
		req.Model = *common.Model
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, openAIRequestMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	m.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("body", tracing.TruncateString(string(body), maxLoggedBody)).
		Msg("收到模型响应")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %d: %s", resp.StatusCode, tracing.TruncateString(string(body), maxLoggedBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("API 返回的 choices 为空")
	}

	choice := parsed.Choices[0].Message
	out := &schema.Message{Role: schema.Assistant}
	if choice.Role != "" {
		out.Role = schema.RoleType(choice.Role)
	}
	if choice.Content != nil {
		out.Content = *choice.Content
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

// Stream 未实现
func (m *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamNotSupported
}

// WithTools 返回绑定了工具的新模型，参数统一声明为 object
func (m *AliyunQwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := *m
	bound.tools = make([]openAITool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		bound.tools = append(bound.tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
			},
		})
	}
	return &bound, nil
}

var _ model.ToolCallingChatModel = (*AliyunQwenChatModel)(nil)
