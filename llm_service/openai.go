package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultChatURL = "https://api.openai.com/v1/chat/completions"

type OpenAIService struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAIService(apiKey, model string, logger *slog.Logger) *OpenAIService {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIService{
		apiKey:     apiKey,
		model:      model,
		apiURL:     defaultChatURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

func (s *OpenAIService) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxRetries := 3
	retryDelay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		summary, err := s.callOpenAI(ctx, text, minWords, maxWords)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		var backendErr *backendError
		if errors.As(err, &backendErr) {
			if backendErr.quotaExhausted() {
				s.logger.Error("summarization quota exhausted",
					slog.String("model", s.model),
					slog.String("kind", backendErr.Kind),
					slog.String("message", backendErr.Message))
				return "", fmt.Errorf("summarization quota exhausted: %w", backendErr)
			}

			s.logger.Error("summarization backend error",
				slog.Int("attempt", attempt),
				slog.Int("status", backendErr.Status),
				slog.String("kind", backendErr.Kind),
				slog.String("message", backendErr.Message))
		}

		if attempt == maxRetries {
			break
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", retryDelay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("failed to call OpenAI API after %d attempts: %w", maxRetries, lastErr)
}

func (s *OpenAIService) callOpenAI(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following research context in %d to %d words. Keep the key findings and stay factual.\n\n%s",
		minWords, maxWords, text)

	messages := []map[string]string{
		{"role": "system", "content": "You are a research assistant that writes concise, factual summaries."},
		{"role": "user", "content": prompt},
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":    s.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newBackendError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	choices, ok := result["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", fmt.Errorf("unexpected response format from OpenAI API")
	}

	firstChoice, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected choice format in OpenAI API response")
	}

	message, ok := firstChoice["message"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("message not found in OpenAI API response")
	}

	content, ok := message["content"].(string)
	if !ok {
		return "", fmt.Errorf("content not found in OpenAI API response")
	}

	return content, nil
}
