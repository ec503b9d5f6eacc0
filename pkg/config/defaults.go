package config

const (
	defaultListen = ":8080"

	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "embeddinggemma"

	defaultSummarizeProvider = "ollama"
	defaultSummarizeTarget   = "http://localhost:11434"
	defaultSummarizeModel    = "llama3.2"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "driftline.models"

	defaultIngestWorkers uint = 3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
		},
		Summarize: SummarizeConfig{
			Provider: defaultSummarizeProvider,
			Target:   defaultSummarizeTarget,
			Model:    defaultSummarizeModel,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Ingest: IngestConfig{
			Workers: defaultIngestWorkers,
		},
	}
}
