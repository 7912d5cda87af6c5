package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
)

// ErrorBody 统一错误响应体.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误码与可读信息.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AbortWithError 以统一格式写出错误并中止后续处理器.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}

	c.AbortWithStatusJSON(appErr.Status, ErrorBody{Error: ErrorDetail{Code: appErr.Code, Message: appErr.Message}})
}
