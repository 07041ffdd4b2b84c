package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAliyunQwenChatModelDefaults(t *testing.T) {
	_, err := NewAliyunQwenChatModel("  ", "", "")
	assert.Error(t, err, "空密钥应报错")

	m, err := NewAliyunQwenChatModel("key", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultQwenModel, m.ModelName())
	assert.Equal(t, DefaultQwenAPIURL, m.apiURL)
}

func TestGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"张三"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewAliyunQwenChatModel("test-key", "qwen-turbo", srv.URL)
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("只输出人名"),
		schema.UserMessage("张三\n软件工程师"),
	}, model.WithTemperature(0))
	require.NoError(t, err)

	assert.Equal(t, "张三", out.Content)
	assert.Equal(t, schema.Assistant, out.Role)
	assert.Equal(t, "qwen-turbo", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.Temperature, "temperature 选项应透传")
	assert.Equal(t, float32(0), *got.Temperature)
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit"}`))
	}))
	defer srv.Close()

	m, err := NewAliyunQwenChatModel("k", "", srv.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429", "错误信息应包含状态码以便重试判断")
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	m, err := NewAliyunQwenChatModel("k", "", srv.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestWithToolsDoesNotMutate(t *testing.T) {
	m, err := NewAliyunQwenChatModel("k", "", "")
	require.NoError(t, err)

	bound, err := m.WithTools([]*schema.ToolInfo{{Name: "lookup", Desc: "查询"}, nil})
	require.NoError(t, err)

	assert.Empty(t, m.tools, "原模型不应被修改")
	assert.Len(t, bound.(*AliyunQwenChatModel).tools, 1)

	_, err = m.Stream(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStreamNotSupported)
}
