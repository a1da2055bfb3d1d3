package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragdex service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Session   SessionConfig   `yaml:"session"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string       `yaml:"api_key"`
	BaseURL             string       `yaml:"base_url"`
	Model               string       `yaml:"model"`
	Dimensions          int          `yaml:"dimensions"`
	Provider            string       `yaml:"provider"`
	DocumentInstruction string       `yaml:"document_instruction"`
	QueryInstruction    string       `yaml:"query_instruction"`
	TimeoutSec          int          `yaml:"timeout_sec"`
	Retries             int          `yaml:"retries"`
	CacheEnabled        *bool        `yaml:"cache_enabled"`
	Budget              BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds embedding token budget limits. Zero limits mean
// unlimited; Action decides whether an exceeded budget warns or rejects.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // "warn" (default) or "reject"
}

// LLMModelConfig holds settings for one chat model in the fallback chain.
type LLMModelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LLMConfig holds chat completion settings. Models form a quota-aware
// fallback chain tried in order.
type LLMConfig struct {
	Models      []LLMModelConfig `yaml:"models"`
	Temperature float32          `yaml:"temperature"`
	MaxTokens   int              `yaml:"max_tokens"`
	TimeoutSec  int              `yaml:"timeout_sec"`
	Retries     int              `yaml:"retries"`
}

// RetrievalConfig holds retrieval tuning.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MMRFetchK     int     `yaml:"mmr_fetch_k"`
	MMRK          int     `yaml:"mmr_k"`
	MMRLambda     float64 `yaml:"mmr_lambda"`
	MinChunkChars int     `yaml:"min_chunk_chars"`
	MinChunkWords int     `yaml:"min_chunk_words"`
	EvalTopK      int     `yaml:"eval_top_k"`
}

// ChunkingConfig holds chunking parameters.
type ChunkingConfig struct {
	ChunkSize           int    `yaml:"chunk_size"`
	ChunkOverlap        int    `yaml:"chunk_overlap"`
	MaxCharsPerRowChunk int    `yaml:"max_chars_per_row_chunk"`
	CatalogPath         string `yaml:"catalog_path"`
}

// WebSearchConfig holds web search fallback settings.
type WebSearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	MaxResults int    `yaml:"max_results"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SessionConfig holds conversation checkpoint settings.
type SessionConfig struct {
	TTLSec int `yaml:"ttl_sec"` // 0 = no expiry
}

// IndexConfig holds HNSW index build settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IngestionConfig holds document ingestion settings.
type IngestionConfig struct {
	DocsDir string `yaml:"docs_dir"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.Retries <= 0 {
		c.Embedding.Retries = 1
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.LLM.Retries <= 0 {
		c.LLM.Retries = 1
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.MMRFetchK <= 0 {
		c.Retrieval.MMRFetchK = 20
	}
	if c.Retrieval.MMRK <= 0 {
		c.Retrieval.MMRK = 6
	}
	if c.Retrieval.MMRLambda <= 0 {
		c.Retrieval.MMRLambda = 0.7
	}
	if c.Retrieval.EvalTopK <= 0 {
		c.Retrieval.EvalTopK = 8
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 512
	}
	if c.Chunking.ChunkOverlap < 0 {
		c.Chunking.ChunkOverlap = 0
	} else if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 64
	}
	if c.Chunking.MaxCharsPerRowChunk <= 0 {
		c.Chunking.MaxCharsPerRowChunk = 1024
	}
	if c.WebSearch.MaxResults <= 0 {
		c.WebSearch.MaxResults = 5
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 15
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragdex:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions is required")
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("llm.models requires at least one model")
	}
	for i, m := range c.LLM.Models {
		if m.Model == "" {
			return fmt.Errorf("llm.models[%d].model is required", i)
		}
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be within [0, 1], got %v", c.Retrieval.MMRLambda)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap %d must be smaller than chunk_size %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	return nil
}

// EmbeddingCacheEnabled reports whether the embedding cache is on (default true).
func (c *Config) EmbeddingCacheEnabled() bool {
	return c.Embedding.CacheEnabled == nil || *c.Embedding.CacheEnabled
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
