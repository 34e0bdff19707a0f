package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/errors"
)

const (
	defaultSuccessMsg = "success"
	successCode       = http.StatusOK
)

// Response 统一响应结构
type Response[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data T      `json:"data,omitempty"`
}

// GinJSON 写入成功响应
//
//	GinJSON(c, user)
//	// {"code":200, "msg":"success", "data":{...}}
func GinJSON(c *gin.Context, data any) {
	if c == nil {
		return
	}
	c.JSON(http.StatusOK, &Response[any]{
		Code: successCode,
		Msg:  defaultSuccessMsg,
		Data: data,
	})
}

// GinJSONE 写入错误响应并终止后续处理。HTTP 状态码与业务码一致，
// 非 4xx/5xx 的业务码按 500 处理。错误的 metadata 放入 data
//
//	GinJSONE(c, auth.ErrInvalidCredentials)
//	// 401 {"code":401, "msg":"incorrect username or password"}
func GinJSONE(c *gin.Context, err error) {
	if c == nil {
		return
	}

	e := errors.FromError(err)
	if e == nil {
		e = errors.Internal("operation failed")
	}

	status := e.Code
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}

	resp := &Response[any]{Code: e.Code, Msg: e.Message}
	if len(e.Metadata) > 0 {
		resp.Data = e.Metadata
	}
	// 5xx 不向客户端暴露底层原因
	if status >= http.StatusInternalServerError && e.Code == errors.UnknownCode {
		resp.Msg = http.StatusText(status)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// Success 创建成功响应对象
func Success[T any](data T) *Response[T] {
	return &Response[T]{
		Code: successCode,
		Msg:  defaultSuccessMsg,
		Data: data,
	}
}

// Failure 创建失败响应对象
func Failure(code int, msg string) *Response[any] {
	return &Response[any]{
		Code: code,
		Msg:  msg,
	}
}

// GinJSONStatus 以指定状态码写入成功响应，例如 201
func GinJSONStatus(c *gin.Context, status int, data any) {
	if c == nil {
		return
	}
	c.JSON(status, &Response[any]{
		Code: status,
		Msg:  defaultSuccessMsg,
		Data: data,
	})
}
