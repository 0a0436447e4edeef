package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 以統一格式寫入錯誤響應
func WriteError(c *gin.Context, err error) {
	status, code := StatusOf(err)
	resp := ErrorResponse{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Message = ErrInternalError.Message
	}
	c.AbortWithStatusJSON(status, resp)
}
