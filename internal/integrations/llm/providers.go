package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tasklens/internal/httpx"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	maxResponseTokens    = 300
)

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// completeFunc sends one system+user exchange and returns the text reply.
type completeFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error)

// --- Anthropic ---

func anthropicCompleter(apiKey, model string) completeFunc {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpx.ExternalHTTPClient()),
	)
	return func(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxResponseTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			log.Printf("llm anthropic error: %v", err)
			return "", Usage{}, fmt.Errorf("anthropic api error: %w", err)
		}
		usage := Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		}
		for _, block := range message.Content {
			if block.Type == "text" {
				log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
				return block.Text, usage, nil
			}
		}
		return "", usage, fmt.Errorf("no text content in anthropic response")
	}
}

// --- OpenAI ---

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func openAICompleter(apiKey, model, baseURL string) completeFunc {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	endpoint := baseURL + "/chat/completions"

	return func(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
		bodyBytes, err := json.Marshal(openAIRequest{
			Model: model,
			Messages: []openAIMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.3,
			MaxTokens:   maxResponseTokens,
		})
		if err != nil {
			return "", Usage{}, fmt.Errorf("marshaling request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return "", Usage{}, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := httpx.ExternalHTTPClient().Do(req)
		if err != nil {
			log.Printf("llm openai error: %v", err)
			return "", Usage{}, fmt.Errorf("openai api error: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", Usage{}, fmt.Errorf("reading response: %w", err)
		}

		var parsed openAIResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", Usage{}, fmt.Errorf("parsing openai response (status %d): %w", resp.StatusCode, err)
		}
		if parsed.Error != nil {
			log.Printf("llm openai api error: %s", parsed.Error.Message)
			return "", Usage{}, fmt.Errorf("openai api error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", Usage{}, fmt.Errorf("no choices in openai response")
		}

		var usage Usage
		if parsed.Usage != nil {
			usage.InputTokens = parsed.Usage.PromptTokens
			usage.OutputTokens = parsed.Usage.CompletionTokens
		}
		content := parsed.Choices[0].Message.Content
		log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(content), usage.InputTokens, usage.OutputTokens)
		return content, usage, nil
	}
}
