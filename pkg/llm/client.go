// Package llm defines the generative-search collaborator used by the citation
// prober and a Gemini implementation of it.
package llm

import "context"

// Client generates text for a prompt.
// Implementations must wrap quota/429 failures in utils.ErrRateLimited so
// callers can tell them apart from other errors.
type Client interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// CallOptions are the per-call settings assembled from Option values
type CallOptions struct {
	Grounding bool // Augment the answer with live web search results
}

// Option configures a single Generate call
type Option func(*CallOptions)

// WithGrounding enables web-search grounding for the call
func WithGrounding() Option {
	return func(o *CallOptions) { o.Grounding = true }
}

// ApplyOptions folds opts into a CallOptions value
func ApplyOptions(opts ...Option) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
