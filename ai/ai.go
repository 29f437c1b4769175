package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"scenariochat/cache"
)

// Message is one turn sent to the text-generation API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to a DashScope-compatible text-generation endpoint. The rest
// of the system only sees it through the workflow's Generator interface, so
// the vendor API stays swappable.
type Client struct {
	apiKey             string
	modelName          string
	apiURL             string
	cache              *cache.Cache
	httpClient         *http.Client
	lastRequestTime    time.Time
	requestMutex       sync.Mutex
	minRequestInterval time.Duration
}

type generationRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []Message `json:"messages"`
	} `json:"input"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func New(apiKey, modelName, apiURL string, c *cache.Cache) (*Client, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &Client{
		apiKey:             apiKey,
		modelName:          modelName,
		apiURL:             apiURL,
		cache:              c,
		httpClient:         &http.Client{Timeout: 120 * time.Second},
		minRequestInterval: 500 * time.Millisecond,
	}, nil
}

func (a *Client) Close() error {
	return nil
}

// rateLimit ensures minimum time between requests to prevent burst rate errors
func (a *Client) rateLimit() {
	a.requestMutex.Lock()
	defer a.requestMutex.Unlock()

	now := time.Now()
	if since := now.Sub(a.lastRequestTime); since < a.minRequestInterval {
		time.Sleep(a.minRequestInterval - since)
	}
	a.lastRequestTime = time.Now()
}

// Generate sends the message list to the model and returns the completion.
// Identical single-message prompts are served from the cache within its TTL.
func (a *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	var cacheKey string
	if a.cache != nil && len(messages) == 1 {
		cacheKey = fmt.Sprintf("gen:%s", messages[0].Content)
		if cached, found := a.cache.Get(cacheKey); found {
			return cached.(string), nil
		}
	}

	reply, err := a.call(ctx, messages)
	if err != nil {
		return "", err
	}

	if cacheKey != "" {
		a.cache.SetDefault(cacheKey, reply)
	}
	return reply, nil
}

func (a *Client) call(ctx context.Context, messages []Message) (string, error) {
	a.rateLimit()

	reqBody := generationRequest{Model: a.modelName}
	reqBody.Input.Messages = messages

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry with exponential backoff on rate limit and transport errors.
	maxRetries := 3
	baseDelay := 2 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			a.rateLimit()
		}

		req, err := http.NewRequestWithContext(ctx, "POST", a.apiURL, bytes.NewBuffer(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < maxRetries {
				continue
			}
			return "", fmt.Errorf("failed to send request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if attempt < maxRetries {
				continue
			}
			return "", fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt < maxRetries {
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s (max retries exceeded)", resp.StatusCode, string(body))
		}

		if resp.StatusCode != http.StatusOK {
			var errorResp struct {
				Code      string `json:"code"`
				Message   string `json:"message"`
				RequestID string `json:"request_id"`
			}
			if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Code != "" {
				return "", fmt.Errorf("API error (status %d): %s - %s (request_id: %s)",
					resp.StatusCode, errorResp.Code, errorResp.Message, errorResp.RequestID)
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}

		var genResp generationResponse
		if err := json.Unmarshal(body, &genResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if genResp.Code != "" && genResp.Code != "Success" {
			return "", fmt.Errorf("API error: %s - %s", genResp.Code, genResp.Message)
		}
		if len(genResp.Output.Choices) == 0 {
			return "", fmt.Errorf("no response from AI model")
		}

		return genResp.Output.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("max retries exceeded")
}

// StripFences removes surrounding markdown code fences from a model reply.
func StripFences(s string, langs ...string) string {
	out := strings.TrimSpace(s)
	for _, lang := range langs {
		out = strings.TrimPrefix(out, "```"+lang)
		out = strings.TrimPrefix(out, "```"+strings.ToUpper(lang))
	}
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
