package extract_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/extract"
)

func TestTextSourceUTF8(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("  Hello  \r\n\r\n  world  ")...)
	got, err := extract.TextSource{}.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello\n\nworld" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestTextSourceLegacyEncoding(t *testing.T) {
	// "café" in Windows-1252.
	raw := []byte{'c', 'a', 'f', 0xE9}
	got, err := extract.TextSource{}.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "café" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestForFilename(t *testing.T) {
	cases := map[string]bool{
		"notes.txt":   true,
		"README.md":   true,
		"Report.PDF":  true,
		"manual.docx": false,
		"sheet.xlsx":  false,
		"noext":       false,
	}
	for name, ok := range cases {
		_, err := extract.ForFilename(name)
		if ok && err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if !ok && !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
		if extract.Supported(name) != ok {
			t.Errorf("%s: Supported mismatch", name)
		}
	}
}

func TestTextRejectsEmptyAndCorruptDocuments(t *testing.T) {
	cases := map[string][]byte{
		"blank.txt":   []byte(" \n\t\n "),
		"broken.pdf":  []byte("this is not a pdf"),
		"empty.pdf":   nil,
	}
	for name, content := range cases {
		if _, err := extract.Text(context.Background(), name, content); !errors.Is(err, model.ErrExtraction) {
			t.Errorf("%s: expected ErrExtraction, got %v", name, err)
		}
	}
}

func TestTextTrimsResult(t *testing.T) {
	got, err := extract.Text(context.Background(), "a.txt", []byte("\n\nPrayogAI is a chatbot builder platform.\n\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "PrayogAI is a chatbot builder platform." {
		t.Errorf("unexpected text %q", got)
	}
}

// docxFile builds a minimal WordprocessingML package.
func docxFile(t *testing.T) []byte {
	t.Helper()
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>Refunds take five days.</w:t></w:r></w:p>` +
			`<w:p/>` +
			`<w:p><w:r><w:t xml:space="preserve">Support is </w:t></w:r><w:r><w:t>by email.</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXDisabledWithoutLicense(t *testing.T) {
	if err := extract.EnableDOCX(""); err != nil {
		t.Fatalf("disable docx: %v", err)
	}

	if extract.Supported("manual.docx") {
		t.Error("docx should be unsupported without a license key")
	}
	if slices.Contains(extract.Extensions(), ".docx") {
		t.Errorf("docx listed in %v", extract.Extensions())
	}
	_, err := extract.Text(context.Background(), "manual.docx", docxFile(t))
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "license") {
		t.Errorf("error should explain the missing license: %v", err)
	}
}

// Needs a UniOffice metered key and network access to the license server.
func TestDOCXSourceExtractsParagraphs(t *testing.T) {
	key := os.Getenv("UNIOFFICE_LICENSE_API_KEY")
	if key == "" {
		t.Skip("UNIOFFICE_LICENSE_API_KEY not set")
	}
	if err := extract.EnableDOCX(key); err != nil {
		t.Fatalf("enable docx: %v", err)
	}
	t.Cleanup(func() { _ = extract.EnableDOCX("") })

	if !slices.Contains(extract.Extensions(), ".docx") {
		t.Errorf("docx missing from %v", extract.Extensions())
	}
	got, err := extract.Text(context.Background(), "manual.docx", docxFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Refunds take five days.\n\nSupport is by email."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := extract.Text(context.Background(), "broken.docx", []byte("this is not a zip archive")); !errors.Is(err, model.ErrExtraction) {
		t.Errorf("expected ErrExtraction for a corrupt docx, got %v", err)
	}
}
