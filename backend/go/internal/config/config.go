package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the application.
type AppInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // e.g. "info", "debug", "warn", "error"
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider       string   `yaml:"provider"`       // "openai", "ollama", "gemini" or "huggingface"
	Model          string   `yaml:"model"`          // provider model name
	APIKey         string   `yaml:"apiKey"`         // provider API key, usually injected via env
	BaseURL        string   `yaml:"baseURL"`        // optional endpoint override
	Dimension      int      `yaml:"dimension"`      // vector size, required when the model is not well known
	BatchSize      int      `yaml:"batchSize"`      // texts per embedding call
	MaxRetries     int      `yaml:"maxRetries"`     // retries per batch before bisecting it
	InitialBackoff Duration `yaml:"initialBackoff"` // first retry delay, doubled on every retry
	MaxBackoff     Duration `yaml:"maxBackoff"`     // retry delay cap
	RequestTimeout Duration `yaml:"requestTimeout"` // timeout of a single embedding call
	CacheSize      int      `yaml:"cacheSize"`      // vectors kept in memory by text hash, 0 disables
}

// IndexConfig describes the vector index built on the embedding field.
type IndexConfig struct {
	IndexType  string                 `yaml:"indexType"`  // e.g. "IVF_FLAT", "HNSW"
	MetricType string                 `yaml:"metricType"` // must be "COSINE" for this collection
	Params     map[string]interface{} `yaml:"params"`     // e.g. {"nlist": 1024}
}

// SearchConfig holds search-time index parameters.
type SearchConfig struct {
	NProbe int `yaml:"nprobe"`
	Ef     int `yaml:"ef"`
}

// SchemaConfig names the collection and tunes its index.
// The field set itself is fixed by the document schema.
type SchemaConfig struct {
	CollectionName string       `yaml:"collectionName"`
	Description    string       `yaml:"description"`
	VectorField    string       `yaml:"vectorField"`
	Index          IndexConfig  `yaml:"index"`
	Search         SearchConfig `yaml:"search"`
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Host           string       `yaml:"host"`
	Port           int          `yaml:"port"`
	ConnectTimeout Duration     `yaml:"connectTimeout"`
	RequestTimeout Duration     `yaml:"requestTimeout"`
	Schema         SchemaConfig `yaml:"schema"`
}

// Address returns the host:port pair of the Milvus server.
func (m MilvusConfig) Address() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// DatabaseConfigs groups the storage backends.
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"`
}

// IndexingConfig tunes the directory indexing run.
type IndexingConfig struct {
	ChunkSize    int      `yaml:"chunkSize"`    // target chunk size in words
	Overlap      int      `yaml:"overlap"`      // words carried between neighbouring chunks
	Workers      int      `yaml:"workers"`      // documents processed concurrently
	SkipExisting bool     `yaml:"skipExisting"` // skip documents whose doc id is already stored
	Store        bool     `yaml:"store"`        // persist to the vector store; false is a dry run
	Include      []string `yaml:"include"`      // glob patterns a relative path must match, empty means all
	Exclude      []string `yaml:"exclude"`      // glob patterns that drop a relative path
}

// LoaderConfig configures the document loaders.
type LoaderConfig struct {
	UnidocLicenseKey string `yaml:"unidocLicenseKey"` // metered key for the docx reader
}

// MiddlewareConfig groups the resilience settings of outbound calls.
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig paces calls to the embedding service.
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// TokenBucketConfig configures the token bucket algorithm.
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // tokens per second
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig configures the breaker around the embedding service.
type CircuitBreakerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	FailureThreshold uint32   `yaml:"failureThreshold"`
	SuccessThreshold uint32   `yaml:"successThreshold"`
	Timeout          Duration `yaml:"timeout"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Loaders    LoaderConfig     `yaml:"loaders"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// Duration is a time.Duration that unmarshals from strings such as "30s".
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and bare integers (seconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go notation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file overrides a value.
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "documind", Version: "0.1.0"},
		Logger: LoggerConfig{Level: "info"},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			BatchSize:      100,
			MaxRetries:     3,
			InitialBackoff: Duration(200 * time.Millisecond),
			MaxBackoff:     Duration(5 * time.Second),
			RequestTimeout: Duration(60 * time.Second),
			CacheSize:      4096,
		},
		Databases: DatabaseConfigs{
			Milvus: MilvusConfig{
				Host:           "localhost",
				Port:           19530,
				ConnectTimeout: Duration(10 * time.Second),
				RequestTimeout: Duration(30 * time.Second),
				Schema: SchemaConfig{
					CollectionName: "technical_documents",
					Description:    "Document chunks with embeddings for RAG",
					VectorField:    "embedding",
					Index: IndexConfig{
						IndexType:  "IVF_FLAT",
						MetricType: "COSINE",
						Params:     map[string]interface{}{"nlist": 1024},
					},
					Search: SearchConfig{NProbe: 10, Ef: 64},
				},
			},
		},
		Indexing: IndexingConfig{
			ChunkSize:    1000,
			Overlap:      200,
			Workers:      1,
			SkipExisting: true,
			Store:        true,
		},
		Middleware: MiddlewareConfig{
			RateLimiter: RateLimiterConfig{
				Enabled:     false,
				TokenBucket: TokenBucketConfig{Rate: 5, Capacity: 10},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 1,
				Timeout:          Duration(30 * time.Second),
			},
		},
	}
}

// LoadConfig reads the YAML file at path on top of Default.
//
// Parameters:
//
//	path: location of the YAML file.
//
// Returns:
//
//	*AppConfig: the merged configuration.
//	error: when the file cannot be read or parsed.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it is non-empty, falls back to Default otherwise,
// then applies environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overlays values found in the environment. lookup is os.LookupEnv in production.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MILVUS_HOST"); ok && v != "" {
		c.Databases.Milvus.Host = v
	}
	if v, ok := lookup("MILVUS_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Databases.Milvus.Port = port
		}
	}
	if v, ok := lookup("UNIDOC_LICENSE_API_KEY"); ok && v != "" {
		c.Loaders.UnidocLicenseKey = v
	}
	if c.Embedding.APIKey != "" {
		return
	}
	var keys []string
	switch c.Embedding.Provider {
	case "openai":
		keys = []string{"OPENAI_KEY", "OPENAI_API_KEY"}
	case "gemini":
		keys = []string{"GEMINI_API_KEY"}
	case "huggingface":
		keys = []string{"HUGGINGFACE_API_KEY"}
	case "ollama":
		if v, ok := lookup("OLLAMA_HOST"); ok && v != "" && c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = v
		}
	}
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			c.Embedding.APIKey = v
			return
		}
	}
}
