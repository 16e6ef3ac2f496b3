package dailyai

// Config holds all environment variables
var Config struct {
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	EmbeddingModel      string
	LabelModel          string
	SafariHistoryDBPath string
	EmbeddingCachePath  string
}

// Default values used by cmd/daily-ai when the environment leaves a setting empty
const (
	DefaultOpenAIAPIKey       = "lm-studio"
	DefaultOpenAIBaseURL      = "http://localhost:1234/v1"
	DefaultEmbeddingModel     = "text-embedding-nomic-embed-text-v1.5"
	DefaultLabelModel         = "openai/gpt-oss-20b"
	DefaultEmbeddingCachePath = "embeddings.db"
)
