package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Indexing  IndexingConfig
	Retrieval RetrievalConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type EmbeddingConfig struct {
	// Provider is the default embedding backend: "ollama", "gemini" or "jina".
	Provider      string
	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
	JinaAPIKey    string
}

type LLMConfig struct {
	// Provider is "ollama" or "huggingface".
	Provider          string
	Model             string
	OllamaBaseURL     string
	HuggingFaceAPIKey string
}

type IndexingConfig struct {
	TopicName string
	ChunkSize int
	Overlap   int
	BatchSize int
	Workers   int
}

type RetrievalConfig struct {
	TopK           int
	CandidateLimit int
	MinSimilarity  float64
	FusionStrategy string
	VectorWeight   float64
	LexicalWeight  float64
	UseHyde        bool
	UseMultiQuery  bool
	UseReranking   bool
	UseTopics      bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:  getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JinaAPIKey:    getEnv("JINA_API_KEY", ""),
		},
		LLM: LLMConfig{
			Provider:          getEnv("LLM_PROVIDER", "ollama"),
			Model:             getEnv("LLM_MODEL", "llama3.1:8b"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Indexing: IndexingConfig{
			TopicName: getEnv("INDEXING_TOPIC_NAME", "indexing.jobs"),
			ChunkSize: getEnvAsInt("INDEXING_CHUNK_SIZE", 1500),
			Overlap:   getEnvAsInt("INDEXING_CHUNK_OVERLAP", 200),
			BatchSize: getEnvAsInt("INDEXING_EMBED_BATCH_SIZE", 16),
			Workers:   getEnvAsInt("INDEXING_WORKERS", 1),
		},
		Retrieval: RetrievalConfig{
			TopK:           getEnvAsInt("RETRIEVAL_TOP_K", 10),
			CandidateLimit: getEnvAsInt("RETRIEVAL_CANDIDATE_LIMIT", 20),
			MinSimilarity:  getEnvAsFloat("RETRIEVAL_MIN_SIMILARITY", 0.0),
			FusionStrategy: getEnv("RETRIEVAL_FUSION_STRATEGY", "weighted"),
			VectorWeight:   getEnvAsFloat("RETRIEVAL_VECTOR_WEIGHT", 0.7),
			LexicalWeight:  getEnvAsFloat("RETRIEVAL_LEXICAL_WEIGHT", 0.3),
			UseHyde:        getEnvAsBool("RETRIEVAL_USE_HYDE", false),
			UseMultiQuery:  getEnvAsBool("RETRIEVAL_USE_MULTI_QUERY", false),
			UseReranking:   getEnvAsBool("RETRIEVAL_USE_RERANKING", false),
			UseTopics:      getEnvAsBool("RETRIEVAL_USE_TOPICS", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
