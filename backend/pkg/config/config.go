package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// Store backends
const (
	StoreNeo4j  = "neo4j"
	StoreSQLite = "sqlite"
)

// Classifier backends
const (
	ClassifierHuggingFace = "huggingface"
	ClassifierLLM         = "llm"
)

// Config holds all application configuration
type Config struct {
	// App
	Env      string
	LogLevel string
	Port     string

	// Store
	StoreBackend string

	// Neo4j
	Neo4jURI         string
	Neo4jUser        string
	Neo4jPassword    string
	Neo4jDatabase    string
	Neo4jMaxPoolSize int
	Neo4jTimeout     time.Duration

	// SQLite
	SQLitePath string

	// Inputs
	ExtractedFile string // JSON artifact written by the PDF extraction step
	TaxonomyFile  string // Optional YAML override of the built-in taxonomy

	// Classifier
	ClassifierBackend string
	HFAPIURL          string
	HFAPIToken        string
	HFModel           string
	LLMBaseURL        string
	LLMAPIKey         string
	LLMModel          string
	ClassifyTopK      int
	ClassifyWorkers   int
	ClassifyTimeout   time.Duration

	// Write retries
	WriteRetries        int
	WriteRetryBaseDelay time.Duration
}

// Load reads configuration from the environment, after an optional .env file
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:                 v.GetString("ENV"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		Port:                v.GetString("PORT"),
		StoreBackend:        strings.ToLower(v.GetString("STORE_BACKEND")),
		Neo4jURI:            v.GetString("NEO4J_URI"),
		Neo4jUser:           v.GetString("NEO4J_USER"),
		Neo4jPassword:       v.GetString("NEO4J_PASSWORD"),
		Neo4jDatabase:       v.GetString("NEO4J_DATABASE"),
		Neo4jMaxPoolSize:    v.GetInt("NEO4J_MAX_POOL_SIZE"),
		Neo4jTimeout:        v.GetDuration("NEO4J_TIMEOUT"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		ExtractedFile:       v.GetString("EXTRACTED_FILE"),
		TaxonomyFile:        v.GetString("TAXONOMY_FILE"),
		ClassifierBackend:   strings.ToLower(v.GetString("CLASSIFIER_BACKEND")),
		HFAPIURL:            v.GetString("HF_API_URL"),
		HFAPIToken:          v.GetString("HF_API_TOKEN"),
		HFModel:             v.GetString("HF_MODEL"),
		LLMBaseURL:          v.GetString("LLM_BASE_URL"),
		LLMAPIKey:           v.GetString("LLM_API_KEY"),
		LLMModel:            v.GetString("LLM_MODEL"),
		ClassifyTopK:        v.GetInt("CLASSIFY_TOP_K"),
		ClassifyWorkers:     v.GetInt("CLASSIFY_WORKERS"),
		ClassifyTimeout:     v.GetDuration("CLASSIFY_TIMEOUT"),
		WriteRetries:        v.GetInt("WRITE_RETRIES"),
		WriteRetryBaseDelay: v.GetDuration("WRITE_RETRY_BASE_DELAY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_BACKEND", StoreNeo4j)
	v.SetDefault("NEO4J_URI", "bolt://localhost:7687")
	v.SetDefault("NEO4J_USER", "neo4j")
	v.SetDefault("NEO4J_PASSWORD", "password")
	v.SetDefault("NEO4J_DATABASE", "")
	v.SetDefault("NEO4J_MAX_POOL_SIZE", 50)
	v.SetDefault("NEO4J_TIMEOUT", 10*time.Second)
	v.SetDefault("SQLITE_PATH", "shoegraph.db")
	v.SetDefault("EXTRACTED_FILE", "extracted_articles.json")
	v.SetDefault("TAXONOMY_FILE", "")
	v.SetDefault("CLASSIFIER_BACKEND", ClassifierHuggingFace)
	v.SetDefault("HF_API_URL", "https://api-inference.huggingface.co/models")
	v.SetDefault("HF_API_TOKEN", "")
	v.SetDefault("HF_MODEL", "facebook/bart-large-mnli")
	v.SetDefault("LLM_BASE_URL", "http://localhost:4000/v1")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("CLASSIFY_TOP_K", 2)
	v.SetDefault("CLASSIFY_WORKERS", 1)
	v.SetDefault("CLASSIFY_TIMEOUT", 60*time.Second)
	v.SetDefault("WRITE_RETRIES", 3)
	v.SetDefault("WRITE_RETRY_BASE_DELAY", 200*time.Millisecond)
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigMissingRequired("SQLITE_PATH")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", "must be neo4j or sqlite, got "+c.StoreBackend)
	}

	switch c.ClassifierBackend {
	case ClassifierHuggingFace:
		if c.HFModel == "" {
			return apperrors.NewConfigMissingRequired("HF_MODEL")
		}
	case ClassifierLLM:
		if c.LLMBaseURL == "" {
			return apperrors.NewConfigMissingRequired("LLM_BASE_URL")
		}
		if c.LLMModel == "" {
			return apperrors.NewConfigMissingRequired("LLM_MODEL")
		}
	default:
		return apperrors.NewConfigValidationFailed("CLASSIFIER_BACKEND", "must be huggingface or llm, got "+c.ClassifierBackend)
	}

	if c.ClassifyTopK < 1 {
		return apperrors.NewConfigValidationFailed("CLASSIFY_TOP_K", "must be at least 1")
	}
	if c.ClassifyWorkers < 1 {
		return apperrors.NewConfigValidationFailed("CLASSIFY_WORKERS", "must be at least 1")
	}
	if c.ClassifyTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("CLASSIFY_TIMEOUT", "must be positive")
	}
	if c.WriteRetries < 0 {
		return apperrors.NewConfigValidationFailed("WRITE_RETRIES", "must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
