package watsonx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/socialchef/recipe-agent/internal/httpclient"
	"github.com/socialchef/recipe-agent/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// refreshMargin is how long before expiry a cached token stops being used.
const refreshMargin = 60 * time.Second

// fetchTimeout bounds a shared IAM refresh, which outlives the caller that started it.
const fetchTimeout = 30 * time.Second

const apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// tokenSource exchanges an IBM Cloud API key for IAM bearer tokens and caches
// them. Concurrent refreshes are coalesced into one IAM call.
type tokenSource struct {
	apiKey string
	iamURL string
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

func newTokenSource(apiKey, iamURL string, client *http.Client) *tokenSource {
	return &tokenSource{
		apiKey: apiKey,
		iamURL: iamURL,
		client: client,
		now:    time.Now,
	}
}

func (s *tokenSource) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || !s.now().Before(s.expiry.Add(-refreshMargin)) {
		return "", false
	}
	return s.token, true
}

// Token returns a valid bearer token, fetching a new one when needed.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	ch := s.group.DoChan("token", func() (any, error) {
		if token, ok := s.cached(); ok {
			return token, nil
		}

		// Waiters share this fetch, so it must not die with the first caller.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		resp, err := s.fetch(fetchCtx)
		if err != nil {
			return "", err
		}

		expiry := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		if resp.Expiration > 0 {
			expiry = time.Unix(resp.Expiration, 0)
		}

		s.mu.Lock()
		s.token = resp.AccessToken
		s.expiry = expiry
		s.mu.Unlock()

		return resp.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next call fetches a new one.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

func (s *tokenSource) fetch(ctx context.Context) (*tokenResponse, error) {
	startTime := time.Now()
	defer func() {
		metrics.RecordExternalCall(ctx, "ibm-iam", time.Since(startTime).Seconds())
	}()

	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "IBM IAM"), http.MethodPost, s.iamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("IAM token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("IAM token error (status %d): %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode IAM token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, ErrNoToken
	}

	return &tr, nil
}
