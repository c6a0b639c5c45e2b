package model

// Config is the complete radar configuration. Field names double as
// config-file keys and RADAR_* environment variables (dots become
// underscores, e.g. RADAR_GATEWAY_PROVIDER).
type Config struct {
	Gateway      GatewayConfig     `yaml:"gateway" mapstructure:"gateway"`
	OpenAI       OpenAIConfig      `yaml:"openai" mapstructure:"openai"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Scoring      ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// GatewayConfig configures the remote classification and NER services
type GatewayConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`                 // huggingface, openai, none
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`                 // Hugging Face inference endpoint
	ClassifierModel string `yaml:"classifier_model" mapstructure:"classifier_model"` // Zero-shot model
	NERModel        string `yaml:"ner_model" mapstructure:"ner_model"`               // Entity recognition model
	Timeout         int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`   // Per request
	MaxRetries      int    `yaml:"max_retries" mapstructure:"max_retries"`           // Retries after the first attempt
	MaxInputChars   int    `yaml:"max_input_chars" mapstructure:"max_input_chars"`   // Narrative prefix sent upstream
	WaitForModel    bool   `yaml:"wait_for_model" mapstructure:"wait_for_model"`     // Block while a cold model loads
	EntitiesEnabled bool   `yaml:"entities_enabled" mapstructure:"entities_enabled"` // Call the NER service

	// Token is read from HUGGINGFACEHUB_API_TOKEN only, never from files
	Token string `yaml:"-" mapstructure:"-"`
}

// OpenAIConfig configures the optional OpenAI-compatible classifier
type OpenAIConfig struct {
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// APIKey is read from OPENAI_API_KEY only
	APIKey string `yaml:"-" mapstructure:"-"`
}

// HTTPConfig holds transport settings shared by all gateway clients
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
	MaxBytes   int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"` // Max input table size fetched over HTTP
}

// CacheConfig controls the in-memory gateway response cache
type CacheConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	TTLMinutes int  `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// RateLimitConfig limits requests per gateway host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`

	// Hosts overrides the default for individual hosts, e.g. a dedicated
	// inference endpoint that allows more traffic
	Hosts []HostRateLimit `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// HostRateLimit is the limit for one host. A non-positive rate means
// unlimited.
type HostRateLimit struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 1 processes rows sequentially
}

// Date sources for the recency rule
const (
	DateSourceMerge     = "merge"     // Narrative dates plus incident date
	DateSourceIncident  = "incident"  // Incident date, narrative dates only when it is missing
	DateSourceNarrative = "narrative" // Narrative dates only
)

// ScoringConfig tunes the risk rules
type ScoringConfig struct {
	RecencyDays int    `yaml:"recency_days" mapstructure:"recency_days"`
	DateSource  string `yaml:"date_source" mapstructure:"date_source"` // merge, incident, narrative
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	TopN    int  `yaml:"top_n" mapstructure:"top_n"` // Rows shown in the priority table
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Provider:        "huggingface",
			BaseURL:         "https://api-inference.huggingface.co",
			ClassifierModel: "joeddav/xlm-roberta-large-xnli",
			NERModel:        "Davlan/bert-base-multilingual-cased-ner-hrl",
			Timeout:         60,
			MaxRetries:      2,
			MaxInputChars:   2000,
			WaitForModel:    true,
			EntitiesEnabled: true,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		HTTP: HTTPConfig{
			UserAgent: "ComplianceRadar/0.1 (+https://github.com/ppiankov/compliance-radar)",
			MaxBytes:  10_000_000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLMinutes: 60,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		Scoring: ScoringConfig{
			RecencyDays: 7,
			DateSource:  DateSourceMerge,
		},
		Output: OutputConfig{
			TopN: 10,
		},
	}
}
