// Package probe checks whether generative search engines cite a site.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/aio-diagnoser/pkg/config"
	"github.com/Sriram-PR/aio-diagnoser/pkg/llm"
	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/process"
	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const (
	maxResponseRunes = 500
	maxSuggestions   = 5
	minTitleRunes    = 3
)

var bulletPrefixRe = regexp.MustCompile(`^[・\-\*]\s*`)

// Target identifies the site being probed
type Target struct {
	URL             string
	Industry        string
	Region          string
	SiteTitle       string
	SiteDescription string
}

// Options configures a Prober
type Options struct {
	MaxAttempts int           // Attempts per LLM call, retried only when rate limited
	CallSpacing time.Duration // Pause before every call after the first
}

// OptionsFromConfig builds prober options from the Gemini settings
func OptionsFromConfig(cfg config.GeminiConfig) Options {
	return Options{MaxAttempts: cfg.MaxAttempts, CallSpacing: cfg.CallSpacing}
}

// Prober runs the citation probe against an LLM with web grounding.
// All calls are sequential and spaced by the policy.
type Prober struct {
	client llm.Client
	policy Policy
	opts   Options
	log    *logrus.Entry
}

// New creates a Prober. A nil client makes every Check return the
// "could not verify" result.
func New(client llm.Client, policy Policy, opts Options, log *logrus.Entry) *Prober {
	if policy == nil {
		policy = NoDelay()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Prober{
		client: client,
		policy: policy,
		opts:   opts,
		log:    log.WithField("component", "probe"),
	}
}

// Check probes the LLM with the fixed queries for target and assembles the
// result. It never fails: LLM trouble degrades into placeholder and fallback text.
// ran is false when no LLM client exists or when no citation query reached the
// LLM at all; the result then only explains why the check could not be
// performed and must not be used to adjust scores.
func (p *Prober) Check(ctx context.Context, target Target) (result *models.AICheckResult, ran bool) {
	if p.client == nil {
		p.log.WithField("error_type", utils.CategorizeError(utils.ErrLLMUnavailable)).
			Warn("No LLM client available, skipping citation probe")
		return unavailableResult(), false
	}

	probeLog := p.log.WithField("url", target.URL)
	domain := bareDomain(target.URL)
	queries := buildQueries(target.Region, target.Industry)

	results := make([]models.CitationQueryResult, 0, len(queries))
	citedCount := 0
	unreached := 0
	calls := 0

	for _, query := range queries {
		text, err := p.call(ctx, &calls, query, llm.WithGrounding())
		if err != nil {
			probeLog.WithFields(logrus.Fields{
				"query":      query,
				"error_type": utils.CategorizeError(err),
			}).Warnf("Citation query failed: %v", err)
			if utils.IsConnectivityError(err) {
				unreached++
			}
			results = append(results, models.CitationQueryResult{
				Query:    query,
				Response: fmt.Sprintf("（API応答エラー: %s）", err.Error()),
				Cited:    false,
			})
			continue
		}

		cited := isCited(text, domain, target.SiteTitle)
		if cited {
			citedCount++
		}
		results = append(results, models.CitationQueryResult{
			Query:    query,
			Response: truncate(text, maxResponseRunes),
			Cited:    cited,
		})
	}

	if unreached == len(queries) {
		probeLog.WithField("error_type", utils.CategorizeError(utils.ErrLLMUnavailable)).
			Warn("LLM unreachable for every citation query, skipping citation probe")
		return unreachableResult(), false
	}

	citationRate := float64(citedCount) / float64(len(queries))
	level := citationLevel(citationRate)

	assessment, err := p.call(ctx, &calls, assessmentPrompt(target, len(queries), citedCount, level))
	if err != nil || strings.TrimSpace(assessment) == "" {
		probeLog.WithField("error_type", utils.CategorizeError(err)).Warn("Assessment unavailable, using fallback")
		assessment = fallbackAssessment(len(queries), citedCount)
	}

	var suggestions []string
	suggestText, err := p.call(ctx, &calls, suggestionPrompt(target, len(queries), citedCount, citationRate))
	if err != nil || strings.TrimSpace(suggestText) == "" {
		probeLog.WithField("error_type", utils.CategorizeError(err)).Warn("Suggestions unavailable, using fallback")
		suggestions = fallbackSuggestions()
	} else {
		suggestions = parseBullets(suggestText, maxSuggestions)
	}

	probeLog.WithFields(logrus.Fields{
		"cited":   citedCount,
		"queries": len(queries),
	}).Info("Citation probe finished")

	return &models.AICheckResult{
		IsCited:                citedCount > 0,
		CitationContext:        fmt.Sprintf("%d件のテスト質問中%d件でサイトが言及されました（%s）", len(queries), citedCount, level),
		Queries:                results,
		OverallAssessment:      assessment,
		ImprovementSuggestions: suggestions,
	}, true
}

// call performs one spaced LLM call, retrying only on rate limits
func (p *Prober) call(ctx context.Context, calls *int, prompt string, opts ...llm.Option) (string, error) {
	if *calls > 0 {
		if err := p.policy.Wait(ctx, p.opts.CallSpacing); err != nil {
			return "", err
		}
	}
	*calls++

	if process.IsInitialized() {
		p.log.WithField("prompt_tokens", process.CountTokens(prompt)).Debug("Calling LLM")
	}

	var lastErr error
	for attempt := 0; attempt < p.opts.MaxAttempts; attempt++ {
		text, err := p.client.Generate(ctx, prompt, opts...)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, utils.ErrRateLimited) || attempt == p.opts.MaxAttempts-1 {
			break
		}

		wait := p.policy.Backoff(attempt)
		p.log.WithFields(logrus.Fields{
			"attempt":      attempt + 1,
			"max_attempts": p.opts.MaxAttempts,
			"delay":        wait,
		}).Warn("LLM rate limited, retrying...")
		if err := p.policy.Wait(ctx, wait); err != nil {
			return "", fmt.Errorf("context cancelled (%v) during retry delay after error: %w", err, lastErr)
		}
	}

	if errors.Is(lastErr, utils.ErrRateLimited) && p.opts.MaxAttempts > 1 {
		return "", fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
	}
	return "", lastErr
}

func buildQueries(region, industry string) []string {
	return []string{
		fmt.Sprintf("%sで%sのおすすめの会社を教えてください", region, industry),
		fmt.Sprintf("%sの%sについて詳しく教えてください", region, industry),
		fmt.Sprintf("%sを%sで探しています。どこがいいですか？", industry, region),
	}
}

// bareDomain returns the hostname of rawURL without a leading "www."
func bareDomain(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// isCited is a plain substring match on the domain or the site title
func isCited(response, domain, title string) bool {
	if domain != "" && strings.Contains(response, domain) {
		return true
	}
	return len([]rune(title)) >= minTitleRunes && strings.Contains(response, title)
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

func percent(rate float64) int {
	return int(math.Round(rate * 100))
}

func citationLevel(rate float64) string {
	switch {
	case rate == 0:
		return "引用率0%で、AI検索において全く認識されていない深刻な状態です"
	case rate < 0.5:
		return fmt.Sprintf("引用率%d%%で、AI検索での認知度は非常に低い状態です", percent(rate))
	case rate < 1.0:
		return fmt.Sprintf("引用率%d%%で、一部のクエリでは認識されていますが不十分です", percent(rate))
	default:
		return "全てのテスト質問でAIに引用されており、良好な状態です"
	}
}

// parseBullets keeps lines starting with "・", "-" or "*", without the marker
func parseBullets(text string, limit int) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "・") && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		item := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items
}
