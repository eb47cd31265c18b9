package config

import (
	"testing"
)

// fakeBackend is an in-memory Backend.
type fakeBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (b *fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *fakeBackend) SetString(key, val string) error {
	b.strings[key] = val
	return nil
}

func (b *fakeBackend) SetInt(key string, val int) error {
	b.ints[key] = val
	return nil
}

func (b *fakeBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadWith(newFakeBackend())
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	if cfg.Server.Port != 4700 {
		t.Errorf("Server.Port = %d, want 4700", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want default", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.SummaryModel != "llama3.2" {
		t.Errorf("Ollama.SummaryModel = %q, want llama3.2", cfg.Ollama.SummaryModel)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("Ollama.EmbedModel = %q, want nomic-embed-text", cfg.Ollama.EmbedModel)
	}
	if cfg.Analysis.ReuseThreshold != 0.85 {
		t.Errorf("Analysis.ReuseThreshold = %v, want 0.85", cfg.Analysis.ReuseThreshold)
	}
	if cfg.Analysis.SimilarThreshold != 0.75 {
		t.Errorf("Analysis.SimilarThreshold = %v, want 0.75", cfg.Analysis.SimilarThreshold)
	}
	if cfg.Analysis.MaxSimilar != 3 {
		t.Errorf("Analysis.MaxSimilar = %d, want 3", cfg.Analysis.MaxSimilar)
	}
	if cfg.Audio.Rate != 150 {
		t.Errorf("Audio.Rate = %d, want 150", cfg.Audio.Rate)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_BackendOverrides(t *testing.T) {
	b := newFakeBackend()
	b.ints["server.port"] = 5100
	b.strings["ollama.summary_model"] = "mistral"
	b.strings["analysis.reuse_threshold"] = "0.9"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d, want 5100", cfg.Server.Port)
	}
	if cfg.Ollama.SummaryModel != "mistral" {
		t.Errorf("Ollama.SummaryModel = %q, want mistral", cfg.Ollama.SummaryModel)
	}
	if cfg.Analysis.ReuseThreshold != 0.9 {
		t.Errorf("Analysis.ReuseThreshold = %v, want 0.9", cfg.Analysis.ReuseThreshold)
	}
}

func TestLoad_EnvOverridesBackend(t *testing.T) {
	b := newFakeBackend()
	b.ints["server.port"] = 5100
	t.Setenv("POLISIGHT_SERVER_PORT", "6200")
	t.Setenv("POLISIGHT_OLLAMA_QA_MODEL", "qwen2.5")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	if cfg.Server.Port != 6200 {
		t.Errorf("Server.Port = %d, want env override 6200", cfg.Server.Port)
	}
	if cfg.Ollama.QAModel != "qwen2.5" {
		t.Errorf("Ollama.QAModel = %q, want qwen2.5", cfg.Ollama.QAModel)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("POLISIGHT_SERVER_PORT", "not-a-number")
	t.Setenv("POLISIGHT_ANALYSIS_SIMILAR_THRESHOLD", "high")

	cfg, err := loadWith(newFakeBackend())
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	if cfg.Server.Port != 4700 {
		t.Errorf("Server.Port = %d, want default on parse failure", cfg.Server.Port)
	}
	if cfg.Analysis.SimilarThreshold != 0.75 {
		t.Errorf("Analysis.SimilarThreshold = %v, want default on parse failure", cfg.Analysis.SimilarThreshold)
	}
}

func TestShowAll_CoversEveryKey(t *testing.T) {
	cfg, err := loadWith(newFakeBackend())
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d entries, want %d", len(infos), len(ValidKeys()))
	}
	for _, info := range infos {
		if info.Key == "" || info.Value == "" {
			t.Errorf("entry %+v has empty key or value", info)
		}
	}
}
