// Package github resolves the declared languages of a repository via the
// GitHub REST API. The lookup is best-effort enrichment: callers must treat
// any returned error as "no languages" and carry on.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.github.com"

var repoPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// Config controls the languages client.
type Config struct {
	// APIBase overrides the GitHub API origin (tests, GHE).
	APIBase string
	// Token optionally authenticates requests, lifting the rate limit.
	Token string
	// Timeout bounds one languages request.
	Timeout time.Duration
}

// Client implements crawler.LanguageResolver against the GitHub API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	logger     *zap.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    apiBase,
		token:      cfg.Token,
		logger:     logger,
	}
}

// ResolveLanguages extracts owner/name from the repository URL and returns
// the language keys in API response order. A URL that is not a GitHub
// repository yields a nil slice and no network call.
func (c *Client) ResolveLanguages(ctx context.Context, repoURL string) ([]string, error) {
	match := repoPattern.FindStringSubmatch(repoURL)
	if match == nil {
		return nil, nil
	}
	owner, repo := match[1], match[2]

	endpoint := fmt.Sprintf("%s/repos/%s/%s/languages", c.apiBase, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build languages request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "codehawks-scrapper")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch languages: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close languages response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("languages request for %s/%s: unexpected status %s", owner, repo, resp.Status)
	}

	languages, err := decodeLanguageKeys(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode languages for %s/%s: %w", owner, repo, err)
	}
	return languages, nil
}

// decodeLanguageKeys reads the language→bytes object as a token stream so
// the API's key order survives; a plain map would shuffle it.
func decodeLanguageKeys(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var bytes json.Number
		if err := dec.Decode(&bytes); err != nil {
			return nil, fmt.Errorf("read byte count for %q: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
