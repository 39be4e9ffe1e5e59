package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/attachstack/config"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/interfaces"
)

// Client talks to the Microsoft Graph API. Credential acquisition is not its
// job: every call asks the TokenProvider for an already-refreshed token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	tokens     interfaces.TokenProvider
	log        logger.Logger
}

func NewClient(cfg *config.GraphConfig, tokens interfaces.TokenProvider, log logger.Logger) *Client {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
		tokens:     tokens,
		log:        log,
	}
}

// StaticTokenProvider wraps a pre-acquired access token. Refresh stays with
// the caller.
type StaticTokenProvider struct {
	Token string
}

func (p StaticTokenProvider) AccessToken(ctx context.Context) (string, error) {
	if p.Token == "" {
		return "", errors.New("no access token configured")
	}
	return p.Token, nil
}

func (c *Client) absoluteURL(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + pathOrURL
}

func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// doOnce issues a single request without retries. Callers that own a
// sequential protocol (chunked uploads) use it directly.
func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, headers map[string]string) (int, []byte, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return 0, nil, er.WrapItemError(er.KindAuthError, err, "access token unavailable")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.absoluteURL(url), reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to build graph request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if span := opentracing.SpanFromContext(ctx); span != nil {
		tracing.InjectSpanContextIntoHTTPRequest(req, span)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, er.WrapItemError(er.KindNetworkError, err, "graph request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, er.WrapItemError(er.KindNetworkError, err, "failed to read graph response")
	}
	return resp.StatusCode, respBody, nil
}

// do issues a request and retries transient failures (network errors, 429,
// 5xx) a bounded number of times with exponential backoff. Auth failures are
// permanent here; the caller re-authenticates externally.
func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (int, []byte, error) {
	var status int
	var respBody []byte

	operation := func() error {
		s, b, err := c.doOnce(ctx, method, url, body, headers)
		if err != nil {
			if er.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if transientStatus(s) {
			return er.NewItemError(er.KindNetworkError, fmt.Sprintf("graph returned status %d", s))
		}
		if s == http.StatusUnauthorized || s == http.StatusForbidden {
			return backoff.Permanent(er.NewItemError(er.KindAuthError, fmt.Sprintf("graph returned status %d", s)))
		}
		status, respBody = s, b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return 0, nil, err
	}
	return status, respBody, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute
	return bo
}
