package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const maxErrorBodyBytes = 64 << 10

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	log        *logrus.Entry
}

// NewGeminiClient creates a client for cfg.Model.
// Returns utils.ErrLLMUnavailable when apiKey is empty.
func NewGeminiClient(cfg config.GeminiConfig, apiKey string, httpClient *http.Client, log *logrus.Entry) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: no Gemini API key configured (set %s)", utils.ErrLLMUnavailable, cfg.APIKeyEnv)
	}
	if cfg.Model == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: gemini model and base_url are required", utils.ErrConfigValidation)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cfg.Model))

	return &GeminiClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		log:        log.WithFields(logrus.Fields{"component": "gemini", "model": cfg.Model}),
	}, nil
}

// --- Wire types ---

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent   `json:"content"`
		FinishReason string          `json:"finishReason"`
		Grounding    json.RawMessage `json:"groundingMetadata,omitempty"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the text of the first candidate
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	callOpts := ApplyOptions(opts...)

	reqBody := generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if callOpts.Grounding {
		reqBody.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: encoding request JSON: %w", utils.ErrParsing, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", classifyError(resp.StatusCode, body)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response JSON: %w", utils.ErrParsing, err)
	}
	if len(parsed.Candidates) == 0 {
		c.log.Debug("Response contained no candidates")
		return "", nil
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	c.log.WithFields(logrus.Fields{
		"grounded": callOpts.Grounding,
		"chars":    text.Len(),
	}).Debug("Generated response")
	return text.String(), nil
}

// classifyError maps a non-2xx Gemini answer onto the sentinel errors
func classifyError(status int, body []byte) error {
	var apiErr errorResponse
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	lower := strings.ToLower(message + " " + apiErr.Error.Status)
	if status == http.StatusTooManyRequests || strings.Contains(lower, "quota") || strings.Contains(lower, "resource_exhausted") {
		return fmt.Errorf("%w: status %d: %s", utils.ErrRateLimited, status, message)
	}
	if status >= 500 {
		return fmt.Errorf("%w: status %d: %s", utils.ErrServerHTTPError, status, message)
	}
	if status >= 400 {
		return fmt.Errorf("%w: status %d: %s", utils.ErrClientHTTPError, status, message)
	}
	return fmt.Errorf("%w: status %d: %s", utils.ErrOtherHTTPError, status, message)
}
