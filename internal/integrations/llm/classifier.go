// Package llm tags tasks with a hosted language model. Every failure falls
// back to the keyword rules so callers always receive a valid tag.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"tasklens/internal/domain"
	"tasklens/internal/metrics"
	"tasklens/internal/tagging"
)

const MethodAI = "ai_powered"

type Config struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
}

type Classifier struct {
	provider string
	model    string
	complete completeFunc
}

func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	c := &Classifier{provider: cfg.Provider, model: cfg.Model}
	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic api key is required")
		}
		c.complete = anthropicCompleter(cfg.AnthropicAPIKey, cfg.Model)
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		c.complete = openAICompleter(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	return c, nil
}

// ClassifyTask never returns an error: provider and parse failures are
// recorded in the fallback tag's metadata instead.
func (c *Classifier) ClassifyTask(ctx context.Context, title, description string) (domain.TagAnalysis, error) {
	log.Printf("llm classify provider=%s model=%s chars=%d", c.provider, c.model, utf8.RuneCountInString(title)+utf8.RuneCountInString(description))

	text, usage, err := c.complete(ctx, systemPrompt, buildUserPrompt(title, description))
	if err != nil {
		return c.fallback(title, description, err), nil
	}
	a, err := parseTagResponse(text)
	if err != nil {
		return c.fallback(title, description, err), nil
	}
	a.Metadata = map[string]any{
		"method":     MethodAI,
		"provider":   c.provider,
		"model":      c.model,
		"tokens_in":  usage.InputTokens,
		"tokens_out": usage.OutputTokens,
	}
	return a, nil
}

func (c *Classifier) fallback(title, description string, cause error) domain.TagAnalysis {
	log.Printf("llm classify fallback provider=%s model=%s: %v", c.provider, c.model, cause)
	metrics.ClassificationFallbacks.WithLabelValues(c.provider).Inc()

	a := tagging.ClassifyTask(title, description)
	a.Metadata["fallback_reason"] = cause.Error()
	a.Metadata["attempted_provider"] = c.provider
	return a
}

type tagResponse struct {
	ActionDomain    string   `json:"action_domain"`
	EnergyType      string   `json:"energy_type"`
	TimeWeight      string   `json:"time_weight"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Reasoning       string   `json:"reasoning"`
}

func parseTagResponse(responseText string) (domain.TagAnalysis, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var r tagResponse
	if err := json.Unmarshal([]byte(responseText), &r); err != nil {
		return domain.TagAnalysis{}, fmt.Errorf("parsing tag response: %w", err)
	}
	if r.ConfidenceScore == nil {
		return domain.TagAnalysis{}, fmt.Errorf("tag response missing confidence_score")
	}
	a := domain.TagAnalysis{
		ActionDomain:    domain.ActionDomain(strings.TrimSpace(r.ActionDomain)),
		EnergyType:      domain.EnergyType(strings.TrimSpace(r.EnergyType)),
		TimeWeight:      domain.TimeWeight(strings.TrimSpace(r.TimeWeight)),
		ConfidenceScore: *r.ConfidenceScore,
		Reasoning:       strings.TrimSpace(r.Reasoning),
	}
	if err := tagging.Validate(a); err != nil {
		return domain.TagAnalysis{}, fmt.Errorf("tag response rejected: %w", err)
	}
	return a, nil
}
