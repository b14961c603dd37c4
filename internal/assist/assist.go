// Package assist calls a chat-completion API to tidy item titles and pick a
// category. Every entry point degrades gracefully: no key, network failure
// or junk output leave the user's text exactly as typed.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 10 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// WithBaseURL redirects requests, for tests and self-hosted endpoints.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Enabled reports whether a key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Suggestion is the model's proposed cleanup for one item title.
type Suggestion struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const systemPrompt = `You clean up task titles for a to-do app. Fix spelling
and capitalization without changing meaning, and pick the best matching
category from the provided set (or "" if none fit). Respond with JSON:
{"title": "...", "category": "..."}`

// Suggest asks for a corrected title and a category drawn from categories.
func (c *Client) Suggest(ctx context.Context, title string, categories []string) (Suggestion, error) {
	if !c.Enabled() {
		return Suggestion{}, fmt.Errorf("assist: no api key configured")
	}
	user := fmt.Sprintf("Title: %s\nCategories: %s", title, strings.Join(categories, ", "))
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return Suggestion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Suggestion{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Suggestion{}, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return Suggestion{}, fmt.Errorf("assist: %s", apiErr.Error.Message)
		}
		return Suggestion{}, fmt.Errorf("assist: unexpected status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Suggestion{}, err
	}
	if len(cr.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("assist: empty response")
	}

	var sug Suggestion
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &sug); err != nil {
		return Suggestion{}, fmt.Errorf("assist: malformed suggestion: %w", err)
	}
	sug.Title = strings.TrimSpace(sug.Title)
	return sug, nil
}

// Enhance is the forgiving wrapper quick-add uses: on any failure, or when
// the model returns an empty title, the input comes back untouched.
func (c *Client) Enhance(ctx context.Context, title string, categories []string) Suggestion {
	sug, err := c.Suggest(ctx, title, categories)
	if err != nil || sug.Title == "" {
		return Suggestion{Title: title}
	}
	return sug
}
