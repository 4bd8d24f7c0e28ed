package api

import (
	"authserver/internal/apperror"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 错误码定义
const (
	// 通用错误码 (1xxx)
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeUpstreamFailure    = "ERR_UPSTREAM_FAILURE"

	// 认证错误码 (2xxx)
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "ERR_EMAIL_EXISTS"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"

	// 资源错误码 (3xxx)
	ErrCodeUserNotFound = "ERR_USER_NOT_FOUND"

	// 业务逻辑错误码 (4xxx)
	ErrCodeMissingField         = "ERR_MISSING_FIELD"
	ErrCodeInvalidRole          = "ERR_INVALID_ROLE"
	ErrCodeUnsupportedMediaType = "ERR_UNSUPPORTED_MEDIA_TYPE"
	ErrCodeLastAdmin            = "ERR_LAST_ADMIN"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// ServiceError 将账户服务返回的错误映射为 HTTP 响应
func ServiceError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		InternalError(c, "internal server error")
		return
	}

	switch appErr.Kind {
	case apperror.KindConflict:
		ErrorResponse(c, http.StatusConflict, ErrCodeEmailExists, appErr.Message)
	case apperror.KindNotFound:
		ErrorResponseWithDetails(c, http.StatusNotFound, ErrCodeUserNotFound, appErr.Message, appErr.Details)
	case apperror.KindInvalid:
		if apperror.IsUnsupportedMediaType(appErr) {
			ErrorResponseWithDetails(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, appErr.Message, appErr.Details)
			return
		}
		BadRequest(c, ErrCodeInvalidRequest, appErr.Message)
	case apperror.KindBusinessRule:
		BadRequest(c, ErrCodeLastAdmin, appErr.Message)
	case apperror.KindExternal:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Warn("upstream failure")
		ErrorResponse(c, http.StatusBadGateway, ErrCodeUpstreamFailure, appErr.Message)
	default:
		InternalError(c, "internal server error")
	}
}
