package model

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrExtraction             = errors.New("text extraction failed")
	ErrEmbeddingProvider      = errors.New("embedding provider failed")
	ErrIndexUnavailable       = errors.New("vector index unavailable")
	ErrBotNotFound            = errors.New("bot not found")
	ErrBotNotReady            = errors.New("bot is not ready")
	ErrAnswerGenerationFailed = errors.New("answer generation failed")
)
