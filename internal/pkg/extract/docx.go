package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
)

var docxEnabled atomic.Bool

// EnableDOCX registers a UniOffice metered license key. unioffice refuses to
// read documents without one, so .docx files are rejected as unsupported
// until a key is set. An empty key disables .docx.
func EnableDOCX(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		docxEnabled.Store(false)
		return nil
	}
	if err := license.SetMeteredKey(apiKey); err != nil {
		docxEnabled.Store(false)
		return fmt.Errorf("set unioffice license key failed: %w", err)
	}
	docxEnabled.Store(true)
	return nil
}

// DOCXEnabled reports whether a license key has been registered.
func DOCXEnabled() bool {
	return docxEnabled.Load()
}

type DOCXSource struct{}

// Extract returns non-empty paragraphs separated by a blank line.
func (DOCXSource) Extract(ctx context.Context, content []byte) (string, error) {
	if !DOCXEnabled() {
		return "", errDOCXDisabled
	}
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var paragraphs []string
	for _, p := range doc.Paragraphs() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
