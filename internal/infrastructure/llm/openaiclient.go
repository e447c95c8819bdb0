package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lumina/internal/domain/notification"
	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

const (
	defaultModel = "gpt-4o"
	maxAttempts  = 3
)

// OpenAIClient generates personalized notification content. Responses are
// requested as JSON and retried with error feedback when they fail to parse.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger logger.Interface
}

func NewOpenAIClient(cfg *config.LLMConfig, log logger.Interface) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		logger: log.With("component", "llm.openai"),
	}
}

// GenerateNotificationContent asks the model for a subject and markdown body
// given a prompt and the user context block.
func (c *OpenAIClient) GenerateNotificationContent(ctx context.Context, systemPrompt, userContext string) (*notification.Content, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: systemPrompt + "\n\nRespond with a JSON object: " +
				`{"subject": "...", "body": "markdown body"}`,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userContext,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		started := time.Now()

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}

		raw := resp.Choices[0].Message.Content
		content, err := parseNotificationContent(raw)
		if err == nil {
			c.logger.Infow("notification content generated",
				"model", c.model,
				"attempt", attempt,
				"duration_ms", time.Since(started).Milliseconds(),
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
			)
			return content, nil
		}

		lastErr = err
		c.logger.Warnw("model response failed validation, retrying with feedback",
			"attempt", attempt, "error", err)

		// Feed the failure back so the model can correct itself.
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: raw},
			openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("The previous response was invalid: %v. Return only the JSON object.", err),
			},
		)
	}

	return nil, fmt.Errorf("content generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func parseNotificationContent(raw string) (*notification.Content, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if payload.Subject == "" || payload.Body == "" {
		return nil, fmt.Errorf("response is missing subject or body")
	}

	return &notification.Content{Subject: payload.Subject, Body: payload.Body}, nil
}
