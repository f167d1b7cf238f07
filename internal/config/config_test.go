package config

import (
	"os"
	"testing"
)

const sampleConfig = `
llm:
  base_url: https://api.example.com
  api_key: dummy
  model: gemini-3-pro-preview
  system_prompt: custom persona
server:
  host: 127.0.0.1
  port: "9090"
storage:
  path: /tmp/test-sessions.db
chat:
  title_max_len: 40
  error_text: something broke
log_level: debug
`

// TestLoad_FromFile verifies that Load honors CONFIG_PATH and unmarshals all
// sections.
func TestLoad_FromFile(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(sampleConfig); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base_url: %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.SystemPrompt != "custom persona" {
		t.Fatalf("unexpected system_prompt: %s", cfg.LLM.SystemPrompt)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Storage.Path != "/tmp/test-sessions.db" {
		t.Fatalf("unexpected storage path: %s", cfg.Storage.Path)
	}
	if cfg.Chat.TitleMaxLen != 40 {
		t.Fatalf("unexpected title_max_len: %d", cfg.Chat.TitleMaxLen)
	}
	if cfg.Chat.ErrorText != "something broke" {
		t.Fatalf("unexpected error_text: %s", cfg.Chat.ErrorText)
	}
	// Unset values keep their defaults.
	if cfg.Chat.Greeting == "" {
		t.Fatal("greeting default missing")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log_level: %s", cfg.LogLevel)
	}
}

// TestLoad_MissingFileYieldsDefaults verifies the no-config bootstrap path.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.Model != "gemini-3-pro-preview" {
		t.Fatalf("unexpected default model: %s", cfg.LLM.Model)
	}
	if cfg.Chat.TitleMaxLen != defaultTitleMaxLen {
		t.Fatalf("unexpected default title_max_len: %d", cfg.Chat.TitleMaxLen)
	}
	if cfg.Chat.ErrorText != defaultErrorText {
		t.Fatalf("unexpected default error_text: %s", cfg.Chat.ErrorText)
	}
	if cfg.Storage.Path != "sessions.db" {
		t.Fatalf("unexpected default storage path: %s", cfg.Storage.Path)
	}
}

// TestLoad_MalformedFile verifies a broken config is an error, not a silent
// fallback.
func TestLoad_MalformedFile(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString("llm: [unclosed"); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
