package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Respond(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, Envelope{
		Status:  "success",
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func RespondError(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, Envelope{
		Status:  "error",
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message, nil)
}
