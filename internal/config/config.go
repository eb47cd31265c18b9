package config

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	Storage  StorageConfig
	Analysis AnalysisConfig
	Audio    AudioConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL      string
	SummaryModel string
	QAModel      string
	EmbedModel   string
}

type StorageConfig struct {
	DataDir string
}

type AnalysisConfig struct {
	// ReuseThreshold marks a prior analysis as a near-duplicate.
	ReuseThreshold float64
	// SimilarThreshold is the lower bar for listing related analyses.
	SimilarThreshold float64
	// MaxSimilar caps how many related analyses a report shows.
	MaxSimilar int
}

type AudioConfig struct {
	// Rate is the speech rate in words per minute.
	Rate int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4700,
		},
		Ollama: OllamaConfig{
			BaseURL:      "http://localhost:11434",
			SummaryModel: "llama3.2",
			QAModel:      "llama3.2",
			EmbedModel:   "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Analysis: AnalysisConfig{
			ReuseThreshold:   0.85,
			SimilarThreshold: 0.75,
			MaxSimilar:       3,
		},
		Audio: AudioConfig{
			Rate: 150,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, then applies
// environment variable overrides.
//
// On macOS the backend is UserDefaults (domain: com.polisight.app); elsewhere
// it is a JSON file at $XDG_CONFIG_HOME/polisight/config.json. Environment
// variables (POLISIGHT_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
