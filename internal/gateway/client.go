// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

const (
	defaultBaseURL                 = "https://api.github.com/"
	defaultMaxPages                = 500
	defaultSecondaryRateLimitSleep = time.Minute
)

// RetryPolicy bounds the retries of responses GitHub is still computing (HTTP 202).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy waits 2s, 4s, 8s, ... up to 30s, for at most 6 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 6, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// delay returns the wait before retry number n (0-based).
func (p RetryPolicy) delay(n int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(n))) * p.BaseDelay
	if p.MaxDelay > 0 && (backoff > p.MaxDelay || backoff <= 0) {
		backoff = p.MaxDelay
	}
	return backoff
}

// Config configures a Client.
type Config struct {
	// BaseURL of the REST API. Defaults to https://api.github.com/.
	BaseURL string
	// GraphQLURL of the GraphQL endpoint. Empty means the public GitHub endpoint.
	GraphQLURL string
	// Token is used when a call does not supply its own token. Empty means unauthenticated.
	Token string

	RequestTimeout          time.Duration
	SecondaryRateLimitSleep time.Duration
	MaxPages                int
	Retry                   RetryPolicy
}

// Page is one decoded-later GitHub response.
type Page struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Links      map[string]string
}

// NotFound reports whether GitHub answered 404. Such pages are empty results, not errors.
func (p *Page) NotFound() bool {
	return p.StatusCode == http.StatusNotFound
}

// Client issues GET requests to the GitHub REST API and classifies the responses.
type Client struct {
	transport  http.RoundTripper
	baseURL    *url.URL
	graphqlURL string
	token      string
	timeout    time.Duration
	maxPages   int
	retry      RetryPolicy
	logger     *logrus.Entry

	group singleflight.Group

	mu          sync.Mutex
	defaultREST *github.Client
}

// NewClient builds a Client whose transport waits out GitHub secondary rate limits.
func NewClient(cfg Config, logger *logrus.Entry) (*Client, error) {
	sleepLimit := cfg.SecondaryRateLimitSleep
	if sleepLimit <= 0 {
		sleepLimit = defaultSecondaryRateLimitSleep
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(sleepLimit, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	rawBaseURL := cfg.BaseURL
	if rawBaseURL == "" {
		rawBaseURL = defaultBaseURL
	}
	if !strings.HasSuffix(rawBaseURL, "/") {
		rawBaseURL += "/"
	}
	baseURL, err := url.Parse(rawBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub API URL %q: %w", cfg.BaseURL, err)
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Client{
		transport:  rateLimitWaiter,
		baseURL:    baseURL,
		graphqlURL: cfg.GraphQLURL,
		token:      cfg.Token,
		timeout:    cfg.RequestTimeout,
		maxPages:   maxPages,
		retry:      retry,
		logger:     logger.WithField("component", "gateway"),
	}, nil
}

// resolveToken prefers the token supplied with the call over the configured default.
func (c *Client) resolveToken(token string) string {
	if token != "" {
		return token
	}
	return c.token
}

func (c *Client) httpClient(token string) *http.Client {
	transport := c.transport
	if token != "" {
		transport = &oauth2.Transport{
			Base:   c.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	return &http.Client{Transport: transport, Timeout: c.timeout}
}

// restClient returns the go-github client for a token. Only the configured default
// token's client is cached; tokens supplied per call get a fresh client and are not
// retained once the call returns.
func (c *Client) restClient(token string) *github.Client {
	if token != c.token {
		return c.newRESTClient(token)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defaultREST == nil {
		c.defaultREST = c.newRESTClient(token)
	}
	return c.defaultREST
}

func (c *Client) newRESTClient(token string) *github.Client {
	rc := github.NewClient(c.httpClient(token))
	rc.BaseURL = c.baseURL
	return rc
}

func (c *Client) graphqlClient(token string) *githubv4.Client {
	if c.graphqlURL != "" {
		return githubv4.NewEnterpriseClient(c.graphqlURL, c.httpClient(token))
	}
	return githubv4.NewClient(c.httpClient(token))
}

// Get fetches endpoint, which is either relative to the API base URL or an absolute
// URL taken from a Link header. Identical in-flight requests share one round-trip.
// The shared round-trip is not tied to any one caller's cancellation; each caller
// stops waiting when its own ctx is done.
func (c *Client) Get(ctx context.Context, endpoint, token string) (*Page, error) {
	token = c.resolveToken(token)
	ch := c.group.DoChan(token+"\x00"+endpoint, func() (interface{}, error) {
		return c.getWithRetry(context.WithoutCancel(ctx), endpoint, token)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.WithField("endpoint", endpoint).Debug("Shared in-flight response")
		}
		return res.Val.(*Page), nil
	}
}

func (c *Client) getWithRetry(ctx context.Context, endpoint, token string) (*Page, error) {
	rest := c.restClient(token)
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.delay(attempt - 1)
			c.logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt + 1,
				"delay":    delay,
			}).Debug("GitHub is still computing the response, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		page, err := c.do(ctx, rest, endpoint)
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			continue
		}
		return page, err
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"attempts": c.retry.MaxAttempts,
	}).Warn("Gave up waiting for GitHub to compute the response")
	return nil, apperrors.NewStatsUnavailableError(endpoint, c.retry.MaxAttempts)
}

func (c *Client) do(ctx context.Context, rest *github.Client, endpoint string) (*Page, error) {
	req, err := rest.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}

	resp, err := rest.BareDo(ctx, req)
	if err != nil {
		return c.classify(endpoint, resp, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	return &Page{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Links:      ParseLinkHeader(resp.Header.Get("Link")),
	}, nil
}

// classify turns a failed go-github call into a page (404) or an application error.
func (c *Client) classify(endpoint string, resp *github.Response, err error) (*Page, error) {
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		return nil, err
	}
	if resp == nil || resp.Response == nil {
		c.logger.WithFields(logrus.Fields{"endpoint": endpoint, "error": err}).Error("GitHub request failed")
		return nil, fmt.Errorf("failed to request %s: %w", endpoint, err)
	}

	status := resp.StatusCode
	log := c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   status,
		"error":    upstreamMessage(err),
	})

	switch status {
	case http.StatusNotFound:
		log.Debug("GitHub returned 404, treating as empty result")
		return &Page{StatusCode: status, Header: resp.Header, Links: map[string]string{}}, nil
	case http.StatusUnauthorized:
		log.Error("GitHub API authentication failed")
		return nil, apperrors.NewUnauthorizedError("GitHub API authentication failed. Please check your access token.")
	case http.StatusForbidden:
		log.Error("GitHub API rate limit exceeded")
		return nil, apperrors.NewRateLimitedError(rateLimitReset(resp, err))
	default:
		log.Error("GitHub API error")
		statusText := http.StatusText(status)
		if statusText == "" {
			statusText = resp.Status
		}
		return nil, apperrors.NewUpstreamError(status, statusText, upstreamMessage(err))
	}
}

// upstreamMessage extracts the "message" field GitHub puts in error bodies.
func upstreamMessage(err error) string {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Message
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.Message
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.Message
	}
	return ""
}

// rateLimitReset reads X-RateLimit-Reset (epoch seconds), falling back to the reset
// go-github recorded when it refused to send a request. Zero means unknown.
func rateLimitReset(resp *github.Response, err error) time.Time {
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if sec, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			return time.Unix(sec, 0)
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.Rate.Reset.Time.IsZero() {
		return rateErr.Rate.Reset.Time
	}
	return time.Time{}
}
