package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: "9090"
elasticsearch:
  addresses: "http://es:9200"
  index_name: "kb"
embedding:
  api_key: "emb-key"
llm:
  api_key: "llm-key"
  prompt:
    locale: "nl"
retrieval:
  namespace: "docs"
  await_timeout: 45s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ReadsYAMLAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("top_k default = %d, want 10", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.AwaitTimeout != 45*time.Second {
		t.Errorf("await_timeout = %v", cfg.Retrieval.AwaitTimeout)
	}
	if cfg.LLM.Generation.Temperature != 0.2 {
		t.Errorf("temperature default = %v, want 0.2", cfg.LLM.Generation.Temperature)
	}
	if cfg.LLM.Prompt.Locale != "nl" {
		t.Errorf("locale = %q", cfg.LLM.Prompt.Locale)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DOCQA_RETRIEVAL_NAMESPACE", "from-env")
	t.Setenv("DOCQA_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Retrieval.Namespace != "from-env" {
		t.Errorf("namespace = %q, want from-env", cfg.Retrieval.Namespace)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestLoad_MissingCredentialsIsConfigurationError(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: \"1\"\n"))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	joined := strings.Join(cfgErr.Missing, ",")
	for _, key := range []string{"elasticsearch.index_name", "retrieval.namespace", "embedding.api_key", "llm.api_key"} {
		if !strings.Contains(joined, key) {
			t.Errorf("missing list %q does not mention %s", joined, key)
		}
	}
}

func TestValidate_MemoryProviderSkipsElasticsearch(t *testing.T) {
	cfg := Config{
		Retrieval: RetrievalConfig{Provider: ProviderMemory, Namespace: "docs"},
		Embedding: EmbeddingConfig{APIKey: "k", BaseURL: "http://e", Model: "m"},
		LLM:       LLMConfig{APIKey: "k", BaseURL: "http://l", Model: "m"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := Config{
		Retrieval: RetrievalConfig{Provider: "pinecone", Namespace: "docs"},
		Embedding: EmbeddingConfig{APIKey: "k", BaseURL: "http://e", Model: "m"},
		LLM:       LLMConfig{APIKey: "k", BaseURL: "http://l", Model: "m"},
	}
	var cfgErr *ConfigurationError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRead_DoesNotValidate(t *testing.T) {
	t.Setenv("DOCQA_JWT_SECRET", "s3cret")
	cfg, err := Read("")
	if err != nil {
		t.Fatalf("read without required keys should succeed: %v", err)
	}
	if cfg.JWT.Secret != "s3cret" || cfg.JWT.AccessTokenExpireHours != 24 {
		t.Errorf("unexpected jwt config: %+v", cfg.JWT)
	}
}
