package httpx

import "github.com/gin-gonic/gin"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data interface{} `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondOK writes a success response.
func RespondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, SuccessResponse{Data: data})
}

// RespondError writes an error response and aborts the handler chain.
func RespondError(ctx *gin.Context, status int, code string, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
