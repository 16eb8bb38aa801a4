package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"prayogai-rag/internal/app"
	"prayogai-rag/internal/transport/http/response"
)

type UploadLimits struct {
	MaxFileBytes int64
	MaxFiles     int
}

type BotHandler struct {
	ingestService *app.IngestService
	botService    *app.BotService
	chatService   *app.ChatService
	limits        UploadLimits
}

type UploadFileRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	// Content is base64 in the JSON body.
	Content []byte `json:"content" binding:"required"`
}

type UploadRequest struct {
	CompanyName string              `json:"company_name" binding:"required,max=128"`
	Files       []UploadFileRequest `json:"files" binding:"required,min=1,dive"`
}

type UploadResponse struct {
	BotID      string `json:"bot_id"`
	WidgetCode string `json:"widget_code"`
	Message    string `json:"message"`
}

func NewBotHandler(ingestService *app.IngestService, botService *app.BotService, chatService *app.ChatService, limits UploadLimits) *BotHandler {
	return &BotHandler{
		ingestService: ingestService,
		botService:    botService,
		chatService:   chatService,
		limits:        limits,
	}
}

// Upload accepts either a multipart form ("company_name" plus one or more
// "files") or a JSON body with base64 file contents, and starts ingestion.
func (h *BotHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if h.limits.MaxFileBytes > 0 && h.limits.MaxFiles > 0 {
		// base64 inflates JSON bodies by a third; leave headroom for it.
		limit := h.limits.MaxFileBytes*int64(h.limits.MaxFiles)*4/3 + 1<<20
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	var (
		input app.StartInput
		err   error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		input, err = h.readMultipart(c)
	} else {
		input, err = h.readJSON(c)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "upload too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	input.OwnerID = userID

	bot, err := h.ingestService.Start(c.Request.Context(), input)
	if err != nil {
		writeBotError(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusAccepted, UploadResponse{
		BotID:      bot.ID,
		WidgetCode: h.botService.WidgetCode(bot),
		Message:    fmt.Sprintf("Bot %q is being created from %d file(s)", bot.Name, len(input.Files)),
	})
}

func (h *BotHandler) readMultipart(c *gin.Context) (app.StartInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return app.StartInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	input := app.StartInput{Name: c.PostForm("company_name")}
	for _, fh := range form.File["files"] {
		if h.limits.MaxFileBytes > 0 && fh.Size > h.limits.MaxFileBytes {
			return app.StartInput{}, fmt.Errorf("%s exceeds %d bytes", fh.Filename, h.limits.MaxFileBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return app.StartInput{}, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return app.StartInput{}, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		input.Files = append(input.Files, app.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return input, nil
}

func (h *BotHandler) readJSON(c *gin.Context) (app.StartInput, error) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return app.StartInput{}, err
		}
		return app.StartInput{}, errors.New("invalid request payload")
	}

	input := app.StartInput{Name: req.CompanyName}
	for _, f := range req.Files {
		input.Files = append(input.Files, app.UploadFile{
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Content:     f.Content,
		})
	}
	return input, nil
}

func (h *BotHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	bots, err := h.botService.List(c.Request.Context(), userID)
	if err != nil {
		writeBotError(c, err, "list bots failed")
		return
	}
	response.OK(c, bots)
}

func (h *BotHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	bot, err := h.botService.Get(c.Request.Context(), userID, c.Param("bot_id"))
	if err != nil {
		writeBotError(c, err, "get bot failed")
		return
	}
	response.OK(c, gin.H{
		"bot":         bot,
		"widget_code": h.botService.WidgetCode(bot),
	})
}

func (h *BotHandler) Stats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	stats, err := h.botService.Stats(c.Request.Context(), userID)
	if err != nil {
		writeBotError(c, err, "bot stats failed")
		return
	}
	response.OK(c, stats)
}

func (h *BotHandler) Documents(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	docs, err := h.botService.Documents(c.Request.Context(), userID, c.Param("bot_id"))
	if err != nil {
		writeBotError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *BotHandler) Messages(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.chatService.History(c.Request.Context(), userID, c.Param("bot_id"), limit)
	if err != nil {
		writeBotError(c, err, "list messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *BotHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	botID := c.Param("bot_id")
	if err := h.botService.Delete(c.Request.Context(), userID, botID); err != nil {
		writeBotError(c, err, "delete bot failed")
		return
	}
	response.OK(c, gin.H{"deleted_bot_id": botID})
}
