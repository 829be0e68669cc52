package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "cv-verify/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BatchingConfig holds the size budgets for segmentation and batching.
type BatchingConfig struct {
	// MaxBatchSize is the character budget for one batch of sections (default 6000).
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`

	// MaxChunkSize is the character budget for raw-text chunks when no
	// section headers are found (default 3000).
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"`
}

// ClassifierMode selects the line classifier implementation.
type ClassifierMode string

const (
	ClassifierHeuristic ClassifierMode = "heuristic"
	ClassifierHTTP      ClassifierMode = "http"
)

// ClassifierConfig selects and configures the section-header classifier.
type ClassifierConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mode is "heuristic" (default) or "http".
	Mode ClassifierMode `json:"mode" yaml:"mode"`

	// URL is the predict endpoint of the external model service (http mode).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Provider identifies a text-generation service.
type Provider string

const (
	ProviderClaude   Provider = "claude"
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderGemini   Provider = "gemini"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the generation service.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible providers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for retryable API failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxTokens caps the response length (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// ExtractionConfig holds settings for the per-batch extraction stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`

	// Workers bounds the number of concurrent generation requests (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// RequestTimeout bounds a single generation request (default 2m).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// SourcesConfig holds credentials and limits for the academic sources.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// SerpAPIKey authenticates Google Scholar requests through SerpAPI.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// ScopusAPIKey authenticates Elsevier Scopus requests.
	ScopusAPIKey string `json:"scopus_api_key,omitempty" yaml:"scopus_api_key,omitempty"`

	// OpenAlexEmail is sent as mailto for the OpenAlex polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// RequestsPerSecond rate-limits each source client (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// MaxArticles caps the articles fetched per source (default 200).
	MaxArticles int `json:"max_articles" yaml:"max_articles"`

	// TitleThreshold is the minimum title similarity for merging articles (default 0.85).
	TitleThreshold float64 `json:"title_threshold" yaml:"title_threshold"`
}

// DocumentConfig holds settings for text extraction.
type DocumentConfig struct {
	// OCRImage is a container image that reads a PDF on stdin and writes its
	// text on stdout, used when local OCR tools are unavailable.
	OCRImage string `json:"ocr_image,omitempty" yaml:"ocr_image,omitempty"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/cv-verify.db").
	Path string `json:"path" yaml:"path"`
}

// VerifyConfig groups all stage configurations for a verification run.
type VerifyConfig struct {
	Document   DocumentConfig   `json:"document" yaml:"document"`
	Batching   BatchingConfig   `json:"batching" yaml:"batching"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Sources    SourcesConfig    `json:"sources" yaml:"sources"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

// Defaults used when a configuration value is zero.
const (
	DefaultMaxBatchSize      = 6000
	DefaultMaxChunkSize      = 3000
	DefaultWorkers           = 4
	DefaultRequestTimeout    = 2 * time.Minute
	DefaultMaxRetries        = 3
	DefaultMaxTokens         = 8192
	DefaultSourceTimeout     = 30 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultMaxArticles       = 200
	DefaultTitleThreshold    = 0.85
	DefaultUserAgent         = "cv-verify/0.1"
	DefaultStorePath         = "data/cv-verify.db"
)

// DefaultVerifyConfig returns a configuration with every default filled in.
func DefaultVerifyConfig() VerifyConfig {
	var cfg VerifyConfig
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with their defaults.
func (c *VerifyConfig) ApplyDefaults() {
	if c.Batching.MaxBatchSize <= 0 {
		c.Batching.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Batching.MaxChunkSize <= 0 {
		c.Batching.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.Classifier.Mode == "" {
		c.Classifier.Mode = ClassifierHeuristic
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = 5 * time.Second
	}
	if c.Extraction.Provider == "" {
		c.Extraction.Provider = ProviderClaude
	}
	if c.Extraction.MaxRetries <= 0 {
		c.Extraction.MaxRetries = DefaultMaxRetries
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = DefaultMaxTokens
	}
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = DefaultWorkers
	}
	if c.Extraction.RequestTimeout <= 0 {
		c.Extraction.RequestTimeout = DefaultRequestTimeout
	}
	if c.Sources.Timeout <= 0 {
		c.Sources.Timeout = DefaultSourceTimeout
	}
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = DefaultUserAgent
	}
	if c.Sources.RequestsPerSecond <= 0 {
		c.Sources.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Sources.MaxArticles <= 0 {
		c.Sources.MaxArticles = DefaultMaxArticles
	}
	if c.Sources.TitleThreshold <= 0 {
		c.Sources.TitleThreshold = DefaultTitleThreshold
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
}
