package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

// Success 200
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, 0, "success", data)
}

// Accepted 202，用于已受理、后台继续处理的请求
func Accepted(c *gin.Context, data interface{}) {
	write(c, http.StatusAccepted, 0, "accepted", data)
}

func BadRequest(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, http.StatusBadRequest, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, http.StatusUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	write(c, http.StatusForbidden, http.StatusForbidden, message, nil)
}

func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, http.StatusNotFound, message, nil)
}

func Conflict(c *gin.Context, message string) {
	write(c, http.StatusConflict, http.StatusConflict, message, nil)
}

func Gone(c *gin.Context, message string) {
	write(c, http.StatusGone, http.StatusGone, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, http.StatusTooManyRequests, message, nil)
}

// InternalError 500，错误细节不返回给客户端
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	write(c, http.StatusInternalServerError, http.StatusInternalServerError, "internal server error", nil)
}
