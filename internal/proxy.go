package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

type sessionCookiesKey struct{}

// WithSessionCookies attaches the visitor's cookies to ctx so proxy calls
// made on their behalf carry the same session.
func WithSessionCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, sessionCookiesKey{}, cookies)
}

func sessionCookies(ctx context.Context) []*http.Cookie {
	c, _ := ctx.Value(sessionCookiesKey{}).([]*http.Cookie)
	return c
}

// ProxyClient issues every remote call through the single proxy endpoint.
// It never interprets response bodies; FetchEnvelope layers the codec on top.
type ProxyClient struct {
	mu      sync.RWMutex
	cfg     ProxyConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	now     func() time.Time
	// host of the configured endpoint; runtime changes may not leave it.
	host string
}

// NewProxyClient builds a client. A nil hc gets a client with cfg.Timeout.
func NewProxyClient(cfg ProxyConfig, bcfg BreakerConfig, hc *http.Client) *ProxyClient {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	p := &ProxyClient{cfg: cfg, client: hc, now: time.Now}
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		p.host = u.Host
	}
	if bcfg.Enabled {
		p.breaker = newProxyBreaker(bcfg)
	}
	return p
}

func newProxyBreaker(bcfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	CircuitBreakerState.Set(0)
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "proxy",
		MaxRequests: 1,
		Timeout:     bcfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bcfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			DashLog(WARN, "ProxyClient", "circuit %s: %s -> %s", name, from, to)
			switch to {
			case gobreaker.StateClosed:
				CircuitBreakerState.Set(0)
			case gobreaker.StateHalfOpen:
				CircuitBreakerState.Set(1)
			case gobreaker.StateOpen:
				CircuitBreakerState.Set(2)
			}
		},
	})
}

func (p *ProxyClient) Settings() ProxyConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// CheckBaseURL reports whether baseURL may replace the current endpoint.
func (p *ProxyClient) CheckBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if u.Host != p.host {
		return fmt.Errorf("%w: %s", ErrForeignEndpoint, u.Host)
	}
	return nil
}

// UpdateSettings swaps endpoint settings for subsequent requests. A new
// timeout gets a fresh client sharing the old transport, so requests in
// flight keep the timeout they started with.
func (p *ProxyClient) UpdateSettings(cfg ProxyConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg.Timeout != p.cfg.Timeout {
		hc := *p.client
		hc.Timeout = cfg.Timeout
		p.client = &hc
	}
	p.cfg = cfg
}

func (p *ProxyClient) httpClient() *http.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// encodeURIComponent escapes s for use as a single query value, spaces as %20.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// BuildURL returns <base>?appName=..&apiPath=..[&query=..][&debug].
func (p *ProxyClient) BuildURL(appName, apiPath, query string) (string, error) {
	if appName == "" || apiPath == "" {
		return "", ErrInvalidArguments
	}
	cfg := p.Settings()
	sep := "?"
	if strings.Contains(cfg.BaseURL, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(cfg.BaseURL)
	b.WriteString(sep)
	b.WriteString("appName=" + encodeURIComponent(appName))
	b.WriteString("&apiPath=" + encodeURIComponent(apiPath))
	if query != "" {
		b.WriteString("&query=" + encodeURIComponent(query))
	}
	if cfg.Debug {
		b.WriteString("&debug")
	}
	return b.String(), nil
}

// Request issues GET against the proxy and returns the transport response.
// The caller owns the body.
func (p *ProxyClient) Request(ctx context.Context, appName, apiPath, query string) (*http.Response, error) {
	uri, err := p.BuildURL(appName, apiPath, query)
	if err != nil {
		return nil, err
	}
	DashLog(DEBUG, "ProxyClient", "Requesting %s", uri)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	for _, c := range sessionCookies(ctx) {
		req.AddCookie(c)
	}
	if static := p.Settings().Cookie; static != "" {
		if existing := req.Header.Get("Cookie"); existing != "" {
			req.Header.Set("Cookie", existing+"; "+static)
		} else {
			req.Header.Set("Cookie", static)
		}
	}

	start := p.now()
	hc := p.httpClient()
	do := func() (*http.Response, error) { return hc.Do(req) }
	var resp *http.Response
	if p.breaker != nil {
		resp, err = p.breaker.Execute(do)
	} else {
		resp, err = do()
	}
	ProxyRequestDuration.WithLabelValues(appName).Observe(p.now().Sub(start).Seconds())
	if err != nil {
		outcome := "transport"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		ProxyRequests.WithLabelValues(appName, outcome).Inc()
		return nil, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ProxyRequests.WithLabelValues(appName, "status").Inc()
	} else {
		ProxyRequests.WithLabelValues(appName, "ok").Inc()
	}
	return resp, nil
}

// FetchEnvelope requests apiPath and validates the proxy envelope. Non-2xx
// statuses and body read failures are transport errors.
func (p *ProxyClient) FetchEnvelope(ctx context.Context, appName, apiPath, query string) (*DecodedResult[json.RawMessage], error) {
	resp, err := p.Request(ctx, appName, apiPath, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError(fmt.Errorf("%s %s: proxy returned status %d", appName, apiPath, resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("reading body: %w", err))
	}
	payload, err := DecodeEnvelope(body)
	if err != nil {
		logEnvelopeFailure(appName, apiPath, body, err)
		return nil, err
	}
	DashLog(DEBUG, "ProxyClient", "Received %d bytes for %s %s", len(body), appName, apiPath)
	return &DecodedResult[json.RawMessage]{Payload: payload, Response: resp, FetchedAt: p.now()}, nil
}

func logEnvelopeFailure(appName, apiPath string, body []byte, err error) {
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		DashLog(ERROR, "ProxyClient", "Request %s %s resulted in an error: %s", appName, apiPath, remote.Message)
		if len(remote.Debug) > 0 {
			DashLog(DEBUG, "ProxyClient", "Debug info: %s", string(remote.Debug))
		}
	case errors.Is(err, ErrParse):
		DashLog(ERROR, "ProxyClient", "Unable to parse JSON from %s %s", appName, apiPath)
	default:
		DashLog(ERROR, "ProxyClient", "Invalid envelope from %s %s: %v", appName, apiPath, err)
	}
	DashLog(DEBUG, "ProxyClient", "Response text: %s", string(body))
}
