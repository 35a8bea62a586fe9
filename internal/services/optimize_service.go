package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/llm"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
)

const optimizerSystemPrompt = `You are an expert prompt engineer. Rewrite the user's prompt so that a large language model
understands the task, the context, the constraints and the expected output format without ambiguity.
Keep the user's intent and language. Return only the improved prompt, without commentary.`

const deepReasoningInstruction = `Before answering, reason step by step about what the original prompt lacks.`

var llmClient = llm.NewClient(llm.Options{})

func SetLLMClient(c *llm.Client) {
	llmClient = c
}

type OptimizeRequest struct {
	Provider      string
	Model         string
	Prompt        string
	Requirement   string
	DeepReasoning bool
}

// ProviderKeyError reports that the caller has no usable key for Provider.
type ProviderKeyError struct {
	Provider string
	Err      error
}

func (e *ProviderKeyError) Error() string {
	return fmt.Sprintf("please configure a valid API key for %s in settings", e.Provider)
}

func (e *ProviderKeyError) Unwrap() error { return e.Err }

// OptimizePrompt rewrites a prompt with the caller's configured provider and
// records the run in their history.
func OptimizePrompt(ctx context.Context, userID string, req OptimizeRequest) (*models.PromptHistory, error) {
	provider := normalizeProvider(req.Provider)
	if provider == "" {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}

	cred, err := loadCredential(ctx, userID, provider)
	switch {
	case errors.Is(err, ErrAPIKeyNotConfigured) && provider == "ollama":
		cred = &resolvedCredential{}
	case errors.Is(err, ErrAPIKeyNotConfigured):
		return nil, &ProviderKeyError{Provider: provider, Err: err}
	case err != nil:
		return nil, err
	}

	model := firstNonEmpty(req.Model, cred.Model, llm.DefaultModel(provider))
	if model == "" {
		return nil, fmt.Errorf("%w: model is required for provider %s", ErrInvalidInput, provider)
	}

	completion, err := llmClient.Complete(ctx, llm.Target{
		Provider: provider,
		BaseURL:  cred.BaseURL,
		APIKey:   cred.APIKey,
	}, llm.ChatRequest{
		Model:       model,
		Messages:    optimizerMessages(req),
		Temperature: 0.7,
	})
	if err != nil {
		if errors.Is(err, llm.ErrUnauthorized) {
			return nil, &ProviderKeyError{Provider: provider, Err: err}
		}
		return nil, err
	}

	result := strings.TrimSpace(completion.Content)
	if result == "" {
		return nil, llm.ErrEmptyResponse
	}

	var reasoning *string
	if r := strings.TrimSpace(completion.Reasoning); r != "" && req.DeepReasoning {
		reasoning = &r
	}

	return createPromptHistory(database.DB.WithContext(ctx), userID, HistoryInput{
		Prompt:        req.Prompt,
		Requirement:   req.Requirement,
		DeepReasoning: reasoning,
		Result:        result,
		Provider:      provider,
		Model:         completion.Model,
	})
}

func optimizerMessages(req OptimizeRequest) []llm.Message {
	system := optimizerSystemPrompt
	if req.DeepReasoning {
		system += "\n" + deepReasoningInstruction
	}

	var user strings.Builder
	user.WriteString("Original prompt:\n")
	user.WriteString(req.Prompt)
	if r := strings.TrimSpace(req.Requirement); r != "" {
		user.WriteString("\n\nAdditional requirements:\n")
		user.WriteString(r)
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
