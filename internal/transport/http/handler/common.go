package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/transport/http/middleware"
	"prayogai-rag/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

// writeBotError maps registry errors to responses. Anything unrecognised is
// logged and reported with fallback only.
func writeBotError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, model.ErrBotNotFound):
		response.Error(c, http.StatusNotFound, response.CodeBotNotFound, "bot not found")
	case errors.Is(err, model.ErrBotNotReady):
		response.Error(c, http.StatusConflict, response.CodeBotNotReady, "bot is not ready yet")
	case errors.Is(err, model.ErrIndexUnavailable):
		ctxzap.Extract(c.Request.Context()).Error(fallback, zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "vector index unavailable")
	default:
		writeInternal(c, err, fallback)
	}
}

func writeInternal(c *gin.Context, err error, message string) {
	ctxzap.Extract(c.Request.Context()).Error(message, zap.Error(err))
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, message)
}
