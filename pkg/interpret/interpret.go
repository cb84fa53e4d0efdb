// Package interpret turns a technical finding into a plain-language
// explanation using an OpenAI-compatible chat completions API.
//
// Interpretation is an enhancement, never a correctness-critical step: a
// failed call degrades to a placeholder explanation instead of failing
// the scan. Calls are rate limited and retried below the orchestrator's
// awareness so pipeline code sees a single pass/fail per finding.
package interpret

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/snlscan/snlscan/internal/jsonutil"
	"github.com/snlscan/snlscan/pkg/duration"
	"github.com/snlscan/snlscan/pkg/finding"
	"github.com/snlscan/snlscan/pkg/retry"
)

// systemPrompt is the contract with the model: simple language, no
// security jargon, exactly the three explanation fields, JSON out.
const systemPrompt = `You are a senior security engineer.
Your goal is to translate raw security tool findings into plain, actionable English for developers.

RULES:
1. Use simple language. Avoid hacking jargon.
2. DO NOT use terms like "POC", "Exploit", "Payload", "CVE".
3. Focus on ONLY three things:
   - "what_is_wrong": Clear one-sentence description.
   - "why_it_matters": Business/safety impact.
   - "how_to_fix": 1-2 concrete steps (code/config).
4. Return a JSON OBJECT with exactly those three string keys.`

const defaultModel = "gpt-4o-mini"
const defaultBaseURL = "https://api.openai.com/v1"

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an alternative API host. Useful for
// proxies and for httptest doubles.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// NewClient creates an interpretation client. Hosted LLM APIs throttle
// aggressively, so calls are limited to 1 req/s with a small burst.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: duration.InterpretCall,
		},
		limiter:  rate.NewLimiter(rate.Limit(1), 3),
		retryCfg: retry.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chat API request/response shapes (the subset this client uses).
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat formatSpec    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// minimalFinding is the trimmed view sent to the model. Keeping the
// prompt small focuses the answer and saves tokens.
type minimalFinding struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Interpret explains a single finding. Errors wrap
// finding.ErrInterpretation; callers substitute Placeholder and continue.
func (c *Client) Interpret(ctx context.Context, f finding.RawFinding) (finding.Interpretation, error) {
	if c.apiKey == "" {
		return finding.Interpretation{}, fmt.Errorf("%w: no API key configured", finding.ErrInterpretation)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return finding.Interpretation{}, fmt.Errorf("%w: %w", finding.ErrInterpretation, err)
	}

	userContent, err := jsonutil.Marshal(minimalFinding{
		Name:        f.Name,
		Title:       f.Title,
		Severity:    f.Severity.String(),
		Description: f.Description,
		URL:         f.URL,
	})
	if err != nil {
		return finding.Interpretation{}, fmt.Errorf("%w: %w", finding.ErrInterpretation, err)
	}

	body, err := jsonutil.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		ResponseFormat: formatSpec{Type: "json_object"},
	})
	if err != nil {
		return finding.Interpretation{}, fmt.Errorf("%w: %w", finding.ErrInterpretation, err)
	}

	var interp finding.Interpretation
	err = retry.Do(ctx, c.retryCfg, func() error {
		var callErr error
		interp, callErr = c.call(ctx, body)
		return callErr
	})
	if err != nil {
		return finding.Interpretation{}, fmt.Errorf("%w: %w", finding.ErrInterpretation, err)
	}
	return interp, nil
}

func (c *Client) call(ctx context.Context, body []byte) (finding.Interpretation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return finding.Interpretation{}, retry.Stop(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return finding.Interpretation{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return finding.Interpretation{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to parsing.
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return finding.Interpretation{}, fmt.Errorf("interpret: API status %d", resp.StatusCode)
	default:
		// Auth and validation errors will not heal on retry.
		return finding.Interpretation{}, retry.Stop(fmt.Errorf("interpret: API status %d", resp.StatusCode))
	}

	var cr chatResponse
	if err := jsonutil.Unmarshal(respBody, &cr); err != nil {
		return finding.Interpretation{}, retry.Stop(fmt.Errorf("interpret: decode response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return finding.Interpretation{}, retry.Stop(fmt.Errorf("interpret: empty response"))
	}

	var interp finding.Interpretation
	if err := jsonutil.Unmarshal([]byte(cr.Choices[0].Message.Content), &interp); err != nil {
		return finding.Interpretation{}, retry.Stop(fmt.Errorf("interpret: decode interpretation: %w", err))
	}
	if interp.WhatIsWrong == "" {
		return finding.Interpretation{}, retry.Stop(fmt.Errorf("interpret: model returned no explanation"))
	}
	return interp, nil
}

// Placeholder is the degrade-gracefully explanation substituted when
// interpretation fails for a finding. The scan still completes.
func Placeholder(f finding.RawFinding) finding.Interpretation {
	what := f.Title
	if what == "" {
		what = f.Name
	}
	return finding.Interpretation{
		WhatIsWrong:  "Automated finding: " + what,
		WhyItMatters: "Security risk detected on " + f.URL + ".",
		HowToFix:     "Refer to official documentation for " + f.Name + ".",
	}
}
