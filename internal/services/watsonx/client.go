// Package watsonx is a minimal client for the IBM watsonx.ai text generation API.
package watsonx

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

// APIVersion is the version date sent with every generation request.
const APIVersion = "2023-05-29"

var (
	ErrNoToken     = errors.New("IAM token response contained no access token")
	ErrEmptyResult = errors.New("malformed response: watsonx returned no generated text")
)

// Parameters are the decoding parameters of a generation request.
type Parameters struct {
	DecodingMethod    string  `json:"decoding_method"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type generationRequest struct {
	ModelID    string     `json:"model_id"`
	Input      string     `json:"input"`
	ProjectID  string     `json:"project_id"`
	Parameters Parameters `json:"parameters"`
}

type generationResponse struct {
	ModelID string `json:"model_id"`
	Results []struct {
		GeneratedText       string `json:"generated_text"`
		GeneratedTokenCount int    `json:"generated_token_count"`
		StopReason          string `json:"stop_reason"`
	} `json:"results"`
}

// Options configures a Client. APIKey and ProjectID are required.
type Options struct {
	APIKey     string
	ProjectID  string
	URL        string
	IAMURL     string
	HTTPClient *http.Client
}

type Client struct {
	baseURL   string
	projectID string
	http      *http.Client
	tokens    *tokenSource
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = httpclient.InstrumentedClient
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.URL, "/"),
		projectID: opts.ProjectID,
		http:      client,
		tokens:    newTokenSource(opts.APIKey, opts.IAMURL, client),
	}
}

// GenerateText runs one text generation and returns the first result.
func (c *Client) GenerateText(ctx context.Context, modelID, input string, params Parameters) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		metrics.RecordAIGeneration(ctx, "watsonx", duration)
		metrics.RecordExternalCall(ctx, "watsonx", duration)
	}()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(generationRequest{
		ModelID:    modelID,
		Input:      input,
		ProjectID:  c.projectID,
		Parameters: params,
	})
	if err != nil {
		return "", err
	}

	status, respBody, err := c.post(ctx, token, body)
	if err != nil {
		return "", err
	}

	// An expired or revoked token gets one fresh token and one more try.
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		if token, err = c.tokens.Token(ctx); err != nil {
			return "", err
		}
		if status, respBody, err = c.post(ctx, token, body); err != nil {
			return "", err
		}
		if status == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
	}

	if status >= 400 {
		return "", fmt.Errorf("watsonx API error (status %d): %s", status, string(respBody))
	}

	var genResp generationResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}

	if len(genResp.Results) == 0 || strings.TrimSpace(genResp.Results[0].GeneratedText) == "" {
		return "", ErrEmptyResult
	}

	return genResp.Results[0].GeneratedText, nil
}

func (c *Client) post(ctx context.Context, token string, body []byte) (int, []byte, error) {
	endpoint := c.baseURL + "/ml/v1/text/generation?version=" + APIVersion
	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "watsonx"), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
