package handler

import (
	"errors"
	"net/http"

	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusFor 把错误类别映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrIndex):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("请求处理失败, path: %s, error: %v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error(), "data": nil})
}
