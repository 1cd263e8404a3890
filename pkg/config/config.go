package config

import (
	"os"
	"time"
)

const (
	DefaultUserAgent = "AIO-Diagnostic-Bot/1.0 (Website Analysis Tool)"
	MaxPagesLimit    = 20 // Upper bound on pages collected per diagnosis
)

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent              string           `yaml:"user_agent"`
	MaxPages               int              `yaml:"max_pages"`
	PageTimeout            time.Duration    `yaml:"page_timeout"`
	CrawlDelay             time.Duration    `yaml:"crawl_delay,omitempty"`    // Politeness delay between fetches to the same host
	RespectRobots          bool             `yaml:"respect_robots,omitempty"` // Skip URLs disallowed by robots.txt
	AnalysisTimeout        time.Duration    `yaml:"analysis_timeout,omitempty"`
	StateDir               string           `yaml:"state_dir"`
	DBGCInterval           time.Duration    `yaml:"db_gc_interval,omitempty"`
	MaxConcurrentDiagnoses int              `yaml:"max_concurrent_diagnoses,omitempty"`
	HTTPClientSettings     HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Gemini                 GeminiConfig     `yaml:"gemini"`
	Preview                PreviewConfig    `yaml:"preview,omitempty"`
	WatchInterval          time.Duration    `yaml:"watch_interval,omitempty"` // Re-diagnosis interval for watch mode
	WatchTargets           []WatchTarget    `yaml:"watch_targets,omitempty"`
}

// WatchTarget is one site re-diagnosed on a schedule by watch mode
type WatchTarget struct {
	URL      string `yaml:"url"`
	Industry string `yaml:"industry"`
	Region   string `yaml:"region"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxRedirects          int           `yaml:"max_redirects,omitempty"`
}

// GeminiConfig configures the grounded LLM used by the citation prober
type GeminiConfig struct {
	APIKey         string        `yaml:"api_key,omitempty"`
	APIKeyEnv      string        `yaml:"api_key_env,omitempty"` // Environment variable consulted when api_key is empty
	Model          string        `yaml:"model,omitempty"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	InitialBackoff time.Duration `yaml:"initial_backoff,omitempty"`
	MaxBackoff     time.Duration `yaml:"max_backoff,omitempty"`
	CallSpacing    time.Duration `yaml:"call_spacing,omitempty"` // Pause before every LLM call after the first
}

// PreviewConfig configures the passage preview used by inspect
type PreviewConfig struct {
	Encoding       string `yaml:"encoding,omitempty"`
	MaxChunkTokens int    `yaml:"max_chunk_tokens,omitempty"`
	ChunkOverlap   int    `yaml:"chunk_overlap,omitempty"`
}

// ResolveAPIKey returns the configured key, falling back to the environment
func (g GeminiConfig) ResolveAPIKey() string {
	if g.APIKey != "" {
		return g.APIKey
	}
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// Default returns a configuration with every default applied
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Validate()
	return cfg
}
