package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"prayogai-rag/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr %s", cfg.HTTPAddr())
	}
	if cfg.RAG.MinSimilarity != 0.3 || cfg.RAG.TopK != 5 {
		t.Errorf("unexpected rag defaults %+v", cfg.RAG)
	}
	if cfg.Embedding.BaseURL != cfg.LLM.BaseURL {
		t.Errorf("embedding endpoint did not fall back to llm endpoint")
	}
}

func TestLoadLayering(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CONFIG_FILE", writeFile(t, dir, "config.toml", `
[app]
port = 9000

[rag]
chunk_tokens = 120
overlap_tokens = 20
ingest_timeout = "2m"

[vector]
engine = "sql"

[extract]
unioffice_license_key = "from-file"
`))
	t.Setenv("ENV_FILE", writeFile(t, dir, "test.env", "RAG_TOP_K=7\nLLM_API_KEY=from-dotenv\n"))
	t.Cleanup(func() {
		os.Unsetenv("RAG_TOP_K")
		os.Unsetenv("LLM_API_KEY")
	})
	t.Setenv("APP_PORT", "9100")
	t.Setenv("RETRY_MAX_DELAY", "5s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Port != 9100 {
		t.Errorf("env should override toml, got port %d", cfg.App.Port)
	}
	if cfg.RAG.ChunkTokens != 120 || cfg.RAG.OverlapTokens != 20 || cfg.RAG.IngestTimeout != 2*time.Minute {
		t.Errorf("toml values not applied: %+v", cfg.RAG)
	}
	if cfg.Vector.Engine != "sql" {
		t.Errorf("expected sql engine, got %s", cfg.Vector.Engine)
	}
	if cfg.RAG.TopK != 7 {
		t.Errorf("expected top k from .env, got %d", cfg.RAG.TopK)
	}
	if cfg.Embedding.APIKey != "from-dotenv" {
		t.Errorf("embedding key did not fall back to llm key")
	}
	if cfg.Retry.MaxDelay != 5*time.Second {
		t.Errorf("expected max delay 5s, got %v", cfg.Retry.MaxDelay)
	}
	if cfg.Extract.UniOfficeLicenseKey != "from-file" {
		t.Errorf("expected license key from toml, got %q", cfg.Extract.UniOfficeLicenseKey)
	}

	t.Setenv("EXTRACT_UNIOFFICE_LICENSE_KEY", "from-env")
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Extract.UniOfficeLicenseKey != "from-env" {
		t.Errorf("expected license key from env, got %q", cfg.Extract.UniOfficeLicenseKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("RAG_CHUNK_TOKENS", "50")
	t.Setenv("RAG_OVERLAP_TOKENS", "50")
	t.Setenv("VECTOR_ENGINE", "faiss")

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"overlap_tokens", "vector.engine"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
