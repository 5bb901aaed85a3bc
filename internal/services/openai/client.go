// Package openai talks to OpenAI-compatible chat completion APIs.
// Groq exposes the same wire format under a different base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/socialchef/recipe-agent/internal/httpclient"
	"github.com/socialchef/recipe-agent/internal/metrics"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
)

var ErrNoResponse = errors.New("no response from chat completion")

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Sampling carries the optional decoding knobs shared with the primary provider.
type Sampling struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

type Client struct {
	name    string
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API at baseURL. name labels spans,
// metrics and error messages ("OpenAI", "Groq").
func NewClient(name, apiKey, baseURL string) *Client {
	return &Client{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.InstrumentedClient,
	}
}

func NewOpenAIClient(apiKey string) *Client {
	return NewClient("OpenAI", apiKey, OpenAIBaseURL)
}

func NewGroqClient(apiKey string) *Client {
	return NewClient("Groq", apiKey, GroqBaseURL)
}

// WithHTTPClient replaces the instrumented default client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.http = client
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Chat sends a system and a user message and returns the first choice.
func (c *Client) Chat(ctx context.Context, model, systemPrompt, userContent string, sampling Sampling) (string, error) {
	startTime := time.Now()
	provider := strings.ToLower(c.name)
	defer func() {
		duration := time.Since(startTime).Seconds()
		metrics.RecordAIGeneration(ctx, provider, duration)
		metrics.RecordExternalCall(ctx, provider, duration)
	}()

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		MaxTokens: sampling.MaxTokens,
	}
	if sampling.Temperature > 0 {
		req.Temperature = &sampling.Temperature
	}
	if sampling.TopP > 0 {
		req.TopP = &sampling.TopP
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, c.name), http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s API error (status %d): %s", c.name, resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", ErrNoResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}
