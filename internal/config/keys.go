package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "POLISIGHT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "ollama.base_url", typ: kString, env: "POLISIGHT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.summary_model", typ: kString, env: "POLISIGHT_OLLAMA_SUMMARY_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.SummaryModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.SummaryModel },
	},
	{
		key: "ollama.qa_model", typ: kString, env: "POLISIGHT_OLLAMA_QA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.QAModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.QAModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "POLISIGHT_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "POLISIGHT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "analysis.reuse_threshold", typ: kFloat, env: "POLISIGHT_ANALYSIS_REUSE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Analysis.ReuseThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Analysis.ReuseThreshold },
	},
	{
		key: "analysis.similar_threshold", typ: kFloat, env: "POLISIGHT_ANALYSIS_SIMILAR_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Analysis.SimilarThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Analysis.SimilarThreshold },
	},
	{
		key: "analysis.max_similar", typ: kInt, env: "POLISIGHT_ANALYSIS_MAX_SIMILAR",
		apply:   func(cfg *Config, v any) { cfg.Analysis.MaxSimilar = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.MaxSimilar },
	},
	{
		key: "audio.rate", typ: kInt, env: "POLISIGHT_AUDIO_RATE",
		apply:   func(cfg *Config, v any) { cfg.Audio.Rate = v.(int) },
		extract: func(cfg Config) any { return cfg.Audio.Rate },
	},
	{
		key: "log.level", typ: kString, env: "POLISIGHT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
