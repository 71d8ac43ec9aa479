package config

const (
	defaultDataDir = "~/.local/share/takeone"

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-2.5-flash"
	defaultLLMTimeoutSeconds = 60

	defaultEmbeddingBaseURL        = "https://api.openai.com/v1/embeddings"
	defaultEmbeddingModel          = "text-embedding-3-small"
	defaultEmbeddingTimeoutSeconds = 30

	defaultSearchTopK      = 10
	defaultMaxVariants     = 12
	defaultOverfetchFactor = 3

	defaultCanonicalLanguage = "en"
	defaultResultsPerAction  = 3

	defaultIngestWorkers   = 2
	defaultSceneThreshold  = 27.0
	defaultMinSceneSeconds = 2.0
	defaultMaxSceneSeconds = 10.0
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Embedding: Embedding{
			BaseURL:        defaultEmbeddingBaseURL,
			Model:          defaultEmbeddingModel,
			TimeoutSeconds: defaultEmbeddingTimeoutSeconds,
		},
		Search: Search{
			DefaultTopK:     defaultSearchTopK,
			MaxVariants:     defaultMaxVariants,
			OverfetchFactor: defaultOverfetchFactor,
		},
		Script: Script{
			CanonicalLanguage: defaultCanonicalLanguage,
			ResultsPerAction:  defaultResultsPerAction,
		},
		Ingest: Ingest{
			Workers:         defaultIngestWorkers,
			SceneThreshold:  defaultSceneThreshold,
			MinSceneSeconds: defaultMinSceneSeconds,
			MaxSceneSeconds: defaultMaxSceneSeconds,
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
