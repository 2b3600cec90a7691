// ABOUTME: OpenAI client for reply drafting and risk assessment
// ABOUTME: Uses gpt-4o-mini chat completions with retry and per-attempt timeouts
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/util"
)

// DefaultChatModel is the default model for chat completions
const DefaultChatModel = "gpt-4o-mini"

const draftSystemPrompt = `You are a helpful community member drafting a reply to a discussion thread.

Write a reply that:
- Directly addresses the question or problem in the thread
- Is specific and actionable, not generic encouragement
- Matches the casual register of the community
- Stays under 150 words
- Never mentions being automated or an assistant

Return ONLY the reply text. No preamble, no quotes.`

const riskSystemPrompt = `You are a content risk reviewer. Given a discussion thread and a draft reply, assess the risk of posting the reply.

Consider:
- promotional or spammy tone
- factual claims that could be wrong
- rule-breaking for a technical community (self-promotion, off-topic)
- condescension or hostility

Return ONLY a JSON object: {"risk": <0.0-1.0>, "rationale": "<one sentence>"}.
0.0 is completely safe, 1.0 is certain to be removed or banned.`

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey     string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:     apiKey,
		ChatModel:  DefaultChatModel,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second * 2,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.ChatModel == "" {
		config.ChatModel = DefaultChatModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:     openai.NewClient(config.APIKey),
		chatModel:  config.ChatModel,
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}, nil
}

// GenerateDraft produces a reply draft for the candidate thread.
func (c *OpenAIClient) GenerateDraft(ctx context.Context, cand models.Candidate) (string, error) {
	userPrompt := fmt.Sprintf("Subreddit: r/%s\nTitle: %s\n\n%s", cand.Subreddit, cand.Title, cand.Body)

	content, err := c.complete(ctx, draftSystemPrompt, userPrompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("generating draft: %w", err)
	}
	draft := strings.TrimSpace(content)
	if draft == "" {
		return "", fmt.Errorf("model returned an empty draft")
	}
	return draft, nil
}

// AssessRisk scores a draft reply for policy and tone risk in [0.0, 1.0].
func (c *OpenAIClient) AssessRisk(ctx context.Context, cand models.Candidate, draft string) (float64, error) {
	userPrompt := fmt.Sprintf("Thread in r/%s:\nTitle: %s\n%s\n\nDraft reply:\n%s",
		cand.Subreddit, cand.Title, cand.Body, draft)

	content, err := c.complete(ctx, riskSystemPrompt, userPrompt, 0.1)
	if err != nil {
		return 0, fmt.Errorf("assessing risk: %w", err)
	}

	var result struct {
		Risk      float64 `json:"risk"`
		Rationale string  `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return 0, fmt.Errorf("parsing risk response: %w", err)
	}
	if result.Risk < 0 || result.Risk > 1 {
		return 0, fmt.Errorf("risk score %v out of range", result.Risk)
	}
	return result.Risk, nil
}

// complete runs a chat completion with retries and a per-attempt timeout.
func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)

		resp, err := c.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: temperature,
		})

		if err != nil {
			cancel()
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}

		if len(resp.Choices) == 0 {
			cancel()
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		cancel()
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
