package response

import (
	"log/slog"
	"net/http"

	"pujaledger/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体，code 为稳定的机器可读错误码
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, apperr.CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, apperr.CodeForbidden, message)
}

// Fail 根据错误类别输出对应状态码；内部错误不向客户端暴露细节
func Fail(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := StatusOf(appErr.Kind)

	if appErr.Kind == apperr.KindInternal {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path,
			"error", err.Error(),
		)
		Error(c, status, apperr.CodeServerError, "internal server error")
		return
	}

	Error(c, status, appErr.Code, appErr.Message)
}

// StatusOf 错误类别 -> HTTP 状态码
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindState:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
