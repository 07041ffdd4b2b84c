// Package handler HTTP 接口处理器
package handler

import (
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/app"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c *app.RequestContext, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func decodeJSON(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}
