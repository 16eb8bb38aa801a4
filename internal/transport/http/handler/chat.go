package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"prayogai-rag/internal/app"
	"prayogai-rag/internal/model"
	"prayogai-rag/internal/transport/http/response"
)

const chatFailedMessage = "could not get a response"

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	BotID string `json:"bot_id"`
	Query string `json:"query" binding:"required,max=4000"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat serves the embeddable widget; the bot id comes from the path when
// present, otherwise from the body.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if botID := c.Param("bot_id"); botID != "" {
		req.BotID = botID
	}
	if req.BotID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "bot_id is required")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), req.BotID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "bot_id and query are required")
		case errors.Is(err, model.ErrBotNotFound):
			response.Error(c, http.StatusNotFound, response.CodeBotNotFound, "bot not found")
		case errors.Is(err, model.ErrBotNotReady):
			response.Error(c, http.StatusConflict, response.CodeBotNotReady, "bot is not ready yet")
		default:
			ctxzap.Extract(c.Request.Context()).Error("chat failed", zap.String("bot_id", req.BotID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, chatFailedMessage)
		}
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: result.Response})
}
