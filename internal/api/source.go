package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"aoe-stats/internal/config"
	"aoe-stats/internal/constants"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var (
	// ErrTransport covers connection failures and timeouts.
	ErrTransport = errors.New("transport failure")
	// ErrStatus is a response that arrived with a non-200 status.
	ErrStatus = errors.New("unexpected status")
)

type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SourceClient reads match listings and match pages from the upstream site.
// Requests are paced by a limiter; callers still issue them one at a time.
type SourceClient struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *fasthttp.Client
	limiter   *rate.Limiter
}

func NewSourceClient(cfg *config.Config) *SourceClient {
	return &SourceClient{
		baseURL:   strings.TrimRight(cfg.SourceBaseURL, "/"),
		userAgent: "aoe-stats/1.0 (+match history for a private group)",
		timeout:   constants.ExternalAPITimeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.SourceRequestInterval), 1),
	}
}

func (c *SourceClient) ListingPageURL(playerID string, page int) string {
	return fmt.Sprintf("%s/user/%s/matches/?page=%d", c.baseURL, url.PathEscape(playerID), page)
}

func (c *SourceClient) MatchDetailURL(matchID string) string {
	return fmt.Sprintf("%s/match/%s/", c.baseURL, url.PathEscape(matchID))
}

func (c *SourceClient) FetchListingPage(ctx context.Context, playerID string, page int) ([]byte, error) {
	return c.fetch(ctx, c.ListingPageURL(playerID, page))
}

func (c *SourceClient) FetchMatchDetail(ctx context.Context, matchID string) ([]byte, error) {
	return c.fetch(ctx, c.MatchDetailURL(matchID))
}

func (c *SourceClient) fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: uri, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "text/html,application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, &FetchError{URL: uri, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &FetchError{URL: uri, StatusCode: resp.StatusCode(), Err: ErrStatus}
	}

	// resp is released on return
	return append([]byte(nil), resp.Body()...), nil
}
