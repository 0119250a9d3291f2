// Package llmclient is the LLM Client: a stateless request/response
// component with a disk-backed cache, implementing a single
// model-agnostic method, Query(prompt) -> text (spec §2, §4.5). The
// transport is Amazon Bedrock, wired exactly as the teacher's
// fixpatches/llm.go does, generalized from a patch-specific call into
// this package's single Query contract.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
)

// bedrockResponse mirrors the subset of the Claude-on-Bedrock response
// shape this client consumes.
type bedrockResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// inferenceProfiles maps a direct model ID to the cross-region inference
// profile ID newer Claude models require (carried over from the
// teacher's convertToInferenceProfile).
var inferenceProfiles = map[string]string{
	"anthropic.claude-sonnet-4-5-20250929-v1:0": "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	"anthropic.claude-3-7-sonnet-20250219-v1:0": "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	"anthropic.claude-3-5-sonnet-20241022-v2:0": "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
	"anthropic.claude-sonnet-4-20250514-v1:0":   "us.anthropic.claude-sonnet-4-20250514-v1:0",
	"anthropic.claude-opus-4-20250514-v1:0":     "us.anthropic.claude-opus-4-20250514-v1:0",
	"anthropic.claude-opus-4-1-20250805-v1:0":   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	"anthropic.claude-3-5-haiku-20241022-v1:0":  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
}

func resolveModelID(model string) string {
	if profile, ok := inferenceProfiles[model]; ok {
		return profile
	}
	return model
}

// Transport is the narrow surface this package needs from Bedrock,
// satisfied by *bedrockruntime.Client; tests substitute a fake.
type Transport interface {
	InvokeModel(ctx context.Context, input *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client is the LLM Client of spec §4.5. Every call is preceded by a
// cache lookup keyed on the exact prompt fingerprint; every miss is
// followed by a cache write before the response is returned to the
// caller (spec §8 testable property 5).
type Client struct {
	transport Transport
	cache     *Cache
	model     string

	maxRetries  int
	minInterval time.Duration // minimum time between Bedrock requests, for rate limiting
	lastRequest time.Time
}

// New builds a Client for the given model, backed by a cache rooted at
// cachePath. It loads AWS config from the ambient environment (spec §6
// "Environment"): shared credentials, profile, and region resolution
// are untouched by this package.
func New(ctx context.Context, model, cachePath string) (*Client, error) {
	cache, err := NewCache(cachePath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(1))
	if err != nil {
		return nil, fmt.Errorf("llmclient: loading AWS config: %w", err)
	}
	return &Client{
		transport:   bedrockruntime.NewFromConfig(cfg),
		cache:       cache,
		model:       resolveModelID(model),
		maxRetries:  5,
		minInterval: 15 * time.Second,
	}, nil
}

// NewWithTransport builds a Client around an injected Transport, for
// testing.
func NewWithTransport(transport Transport, cache *Cache, model string) *Client {
	return &Client{transport: transport, cache: cache, model: resolveModelID(model), maxRetries: 5, minInterval: 15 * time.Second}
}

// Query sends prompt to the model and returns its raw text response,
// consulting and populating the cache by fingerprint (spec §4.5).
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	fingerprint := Fingerprint(prompt)

	if entry, hit, err := c.cache.Lookup(fingerprint); err != nil {
		logger.Info("cache lookup error, falling through to LLM", "fingerprint", fingerprint, "error", err)
	} else if hit {
		logger.Info("cache hit", "fingerprint", fingerprint)
		return entry.Response, nil
	}

	resp, inputTokens, outputTokens, err := c.invoke(ctx, prompt)
	if err != nil {
		return "", err
	}

	entry := types.CacheEntry{
		Fingerprint:  fingerprint,
		Response:     resp,
		Model:        c.model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CreatedAt:    time.Now(),
	}
	if err := c.cache.Store(entry); err != nil {
		return "", fmt.Errorf("llmclient: caching response: %w", err)
	}
	return resp, nil
}

func (c *Client) invoke(ctx context.Context, prompt string) (text string, inputTokens, outputTokens int, err error) {
	requestBody := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        clampMaxTokens(len(prompt)),
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(requestBody)
	if err != nil {
		return "", 0, 0, fmt.Errorf("llmclient: marshaling request: %w", err)
	}

	var out *bedrockruntime.InvokeModelOutput
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(20*(1<<uint(attempt-1))) * time.Second
			logger.Info("retrying Bedrock call", "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return "", 0, 0, ctx.Err()
			case <-time.After(wait):
			}
		}
		c.waitForRateLimit(ctx)

		out, lastErr = c.transport.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.model),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if lastErr == nil {
			break
		}
		logger.Info("Bedrock call failed", "attempt", attempt+1, "error", lastErr)
	}
	if lastErr != nil {
		return "", 0, 0, fmt.Errorf("llmclient: invoking bedrock after %d attempts: %w", c.maxRetries, lastErr)
	}

	var parsed bedrockResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", 0, 0, fmt.Errorf("llmclient: decoding bedrock response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", 0, 0, fmt.Errorf("llmclient: empty response from bedrock")
	}
	return parsed.Content[0].Text, parsed.Usage.InputTokens, parsed.Usage.OutputTokens, nil
}

func (c *Client) waitForRateLimit(ctx context.Context) {
	if c.lastRequest.IsZero() {
		c.lastRequest = time.Now()
		return
	}
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minInterval {
		select {
		case <-ctx.Done():
		case <-time.After(c.minInterval - elapsed):
		}
	}
	c.lastRequest = time.Now()
}

func clampMaxTokens(promptLen int) int {
	maxTokens := (promptLen / 3) * 2
	if maxTokens < 8192 {
		maxTokens = 8192
	}
	if maxTokens > 100000 {
		maxTokens = 100000
	}
	return maxTokens
}
