// Package extract turns uploaded files into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"prayogai-rag/internal/model"
)

// Source extracts plain text from one document format.
type Source interface {
	Extract(ctx context.Context, content []byte) (string, error)
}

var errDOCXDisabled = fmt.Errorf("%w: .docx support is disabled: no unioffice license key configured", model.ErrInvalidInput)

var sources = map[string]Source{
	".pdf":  PDFSource{},
	".docx": DOCXSource{},
	".txt":  TextSource{},
	".md":   TextSource{},
}

// Supported reports whether filename can currently be extracted.
func Supported(filename string) bool {
	_, err := ForFilename(filename)
	return err == nil
}

// Extensions lists the accepted file extensions.
func Extensions() []string {
	exts := []string{".pdf", ".txt", ".md"}
	if DOCXEnabled() {
		exts = append(exts, ".docx")
	}
	return exts
}

func ForFilename(filename string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".docx" && !DOCXEnabled() {
		return nil, errDOCXDisabled
	}
	src, ok := sources[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q, supported types are %s",
			model.ErrInvalidInput, ext, strings.Join(Extensions(), ", "))
	}
	return src, nil
}

// Text picks the source for filename and rejects documents without text.
func Text(ctx context.Context, filename string, content []byte) (string, error) {
	src, err := ForFilename(filename)
	if err != nil {
		return "", err
	}
	text, err := src.Extract(ctx, content)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", model.ErrExtraction, filename, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s contains no extractable text", model.ErrExtraction, filename)
	}
	return text, nil
}
