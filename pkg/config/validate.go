package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

// Validate checks AppConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// MaxPages
	if c.MaxPages == 0 {
		c.MaxPages = MaxPagesLimit
	} else if c.MaxPages < 0 || c.MaxPages > MaxPagesLimit {
		warnings = append(warnings, fmt.Sprintf("max_pages must be within 1..%d, got %d; using %d",
			MaxPagesLimit, c.MaxPages, MaxPagesLimit))
		c.MaxPages = MaxPagesLimit
	}

	// PageTimeout
	if c.PageTimeout < 0 {
		warnings = append(warnings, "page_timeout cannot be negative, defaulting to 10s")
		c.PageTimeout = 10 * time.Second
	} else if c.PageTimeout == 0 {
		c.PageTimeout = 10 * time.Second
	}

	if c.CrawlDelay < 0 {
		warnings = append(warnings, "crawl_delay cannot be negative, disabling delay")
		c.CrawlDelay = 0
	}

	if c.AnalysisTimeout < 0 {
		warnings = append(warnings, "analysis_timeout cannot be negative, disabling timeout")
		c.AnalysisTimeout = 0
	}

	// StateDir
	if c.StateDir == "" {
		c.StateDir = "./aio_state"
	}
	if c.DBGCInterval <= 0 {
		c.DBGCInterval = 10 * time.Minute
	}

	if c.MaxConcurrentDiagnoses <= 0 {
		c.MaxConcurrentDiagnoses = 2
	}

	c.validateHTTPClientSettings()

	geminiWarnings, err := c.Gemini.validate()
	warnings = append(warnings, geminiWarnings...)
	if err != nil {
		return warnings, err
	}

	c.Preview.validate()

	if c.WatchInterval < 0 {
		warnings = append(warnings, "watch_interval cannot be negative, defaulting to 24h")
		c.WatchInterval = 0
	}
	if c.WatchInterval == 0 {
		c.WatchInterval = 24 * time.Hour
	}
	for i := range c.WatchTargets {
		t := &c.WatchTargets[i]
		t.URL = strings.TrimSpace(t.URL)
		t.Industry = strings.TrimSpace(t.Industry)
		t.Region = strings.TrimSpace(t.Region)
		if t.URL == "" || t.Industry == "" || t.Region == "" {
			return warnings, fmt.Errorf("%w: watch_targets[%d] needs url, industry and region", utils.ErrConfigValidation, i)
		}
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 20
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 10 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxRedirects <= 0 {
		h.MaxRedirects = 10
	}
}

func (g *GeminiConfig) validate() (warnings []string, err error) {
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GEMINI_API_KEY"
	}
	if g.Model == "" {
		g.Model = "gemini-2.5-flash"
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if g.RequestTimeout <= 0 {
		g.RequestTimeout = 60 * time.Second
	}
	if g.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: gemini.max_attempts cannot be negative (%d)", utils.ErrConfigValidation, g.MaxAttempts)
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 3
	}
	if g.InitialBackoff <= 0 {
		g.InitialBackoff = 5 * time.Second
	}
	if g.MaxBackoff <= 0 {
		g.MaxBackoff = 30 * time.Second
	}
	if g.InitialBackoff > g.MaxBackoff {
		warnings = append(warnings, fmt.Sprintf(
			"gemini.initial_backoff (%v) > gemini.max_backoff (%v), using max_backoff for initial",
			g.InitialBackoff, g.MaxBackoff))
		g.InitialBackoff = g.MaxBackoff
	}
	if g.CallSpacing < 0 {
		warnings = append(warnings, "gemini.call_spacing cannot be negative, defaulting to 3s")
		g.CallSpacing = 3 * time.Second
	} else if g.CallSpacing == 0 {
		g.CallSpacing = 3 * time.Second
	}
	return warnings, nil
}

func (p *PreviewConfig) validate() {
	if p.Encoding == "" {
		p.Encoding = "cl100k_base"
	}
	if p.MaxChunkTokens <= 0 {
		p.MaxChunkTokens = 512
	}
	if p.ChunkOverlap <= 0 {
		p.ChunkOverlap = 50
	}
	if p.ChunkOverlap >= p.MaxChunkTokens {
		p.ChunkOverlap = p.MaxChunkTokens / 10
	}
}
