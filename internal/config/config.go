// Package config loads the courtside API configuration from YAML.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the courtside API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Stats      StatsConfig      `yaml:"stats"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	QuestionSec     int `yaml:"question_timeout_sec"` // overall per-question processing deadline
}

// DatabaseConfig holds Redis connection settings for the chunk index and history.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StatsConfig holds the relational stats store settings.
type StatsConfig struct {
	Path            string `yaml:"path"`              // SQLite database file
	QueryTimeoutSec int    `yaml:"query_timeout_sec"` // execution ceiling per query
	MaxRows         int    `yaml:"max_rows"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerationConfig holds text-generation provider and reasoning-loop settings.
type GenerationConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	MaxIterations     int     `yaml:"max_iterations"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RetrievalConfig holds ranking settings.
type RetrievalConfig struct {
	IndexName       string  `yaml:"index_name"`
	DefaultK        int     `yaml:"default_k"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	OverfetchFloor  int     `yaml:"overfetch_floor"`
	Weights         Weights `yaml:"weights"`
	HNSWM           int     `yaml:"hnsw_m"`
	HNSWEFConstruct int     `yaml:"hnsw_ef_construction"`
}

// Weights are the composite score weights. They must sum to 1.0.
type Weights struct {
	Similarity float64 `yaml:"similarity"`
	Lexical    float64 `yaml:"lexical"`
	Authority  float64 `yaml:"authority"`
}

// HistoryConfig holds conversation history settings.
type HistoryConfig struct {
	TTLHours int `yaml:"ttl_hours"`
	MaxTurns int `yaml:"max_turns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
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
	if c.HTTP.QuestionSec <= 0 {
		c.HTTP.QuestionSec = 60
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "courtside:"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Stats.QueryTimeoutSec <= 0 {
		c.Stats.QueryTimeoutSec = 15
	}
	if c.Stats.MaxRows <= 0 {
		c.Stats.MaxRows = 50
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.1
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Generation.MaxIterations <= 0 {
		c.Generation.MaxIterations = 5
	}
	if c.Generation.MaxRetries <= 0 {
		c.Generation.MaxRetries = 3
	}
	if c.Generation.RequestsPerSecond <= 0 {
		c.Generation.RequestsPerSecond = 2
	}
	if c.Retrieval.IndexName == "" {
		c.Retrieval.IndexName = "courtside:chunks:idx"
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 5
	}
	if c.Retrieval.OverfetchFactor <= 0 {
		c.Retrieval.OverfetchFactor = 3
	}
	if c.Retrieval.OverfetchFloor <= 0 {
		c.Retrieval.OverfetchFloor = 15
	}
	if c.Retrieval.Weights == (Weights{}) {
		c.Retrieval.Weights = Weights{Similarity: 0.70, Lexical: 0.15, Authority: 0.15}
	}
	if c.Retrieval.HNSWM <= 0 {
		c.Retrieval.HNSWM = 16
	}
	if c.Retrieval.HNSWEFConstruct <= 0 {
		c.Retrieval.HNSWEFConstruct = 200
	}
	if c.History.TTLHours <= 0 {
		c.History.TTLHours = 24
	}
	if c.History.MaxTurns <= 0 {
		c.History.MaxTurns = 6
	}
}

// Validate checks the configuration for correctness.
// Weight-sum enforcement happens here, at configuration time, never per call.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Stats.Path == "" {
		return fmt.Errorf("stats.path is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	w := c.Retrieval.Weights
	if w.Similarity < 0 || w.Lexical < 0 || w.Authority < 0 {
		return fmt.Errorf("retrieval.weights must be non-negative")
	}
	if sum := w.Similarity + w.Lexical + w.Authority; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("retrieval.weights must sum to 1.0, got %g", sum)
	}

	return nil
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
