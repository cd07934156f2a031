package egress

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

// Result is the outcome of probing one proxy.
type Result struct {
	ProxyID   string
	RegionKey string
	Reachable bool
	Latency   time.Duration
	Err       error
}

// Prober issues a request to target through each proxy endpoint. Endpoints use
// socks5/socks5h or http/https (HTTP proxy) URLs.
type Prober struct {
	target      string
	timeout     time.Duration
	concurrency int
}

func NewProber(target string, timeout time.Duration, concurrency int) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Prober{target: target, timeout: timeout, concurrency: concurrency}
}

// CheckAll probes every resource with bounded concurrency. Results keep the input order.
func (p *Prober) CheckAll(ctx context.Context, resources []domain.ProxyResource) ([]Result, error) {
	results := make([]Result, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, res := range resources {
		g.Go(func() error {
			results[i] = p.Check(gctx, res)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("probe proxies: %w", err)
	}
	return results, nil
}

func (p *Prober) Check(ctx context.Context, res domain.ProxyResource) Result {
	result := Result{ProxyID: res.ID, RegionKey: res.RegionKey}

	client, err := p.clientFor(res.Endpoint)
	if err != nil {
		result.Err = err
		return result
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target, nil)
	if err != nil {
		result.Err = fmt.Errorf("build probe request: %w", err)
		return result
	}

	start := time.Now()
	resp, err := client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = fmt.Errorf("probe via %s: %w", res.ID, err)
		return result
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		result.Err = fmt.Errorf("probe via %s: status %d", res.ID, resp.StatusCode)
		return result
	}
	result.Reachable = true
	return result
}

func (p *Prober) clientFor(endpoint string) (*http.Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("parse proxy endpoint %q: invalid url", endpoint)
	}

	transport := &http.Transport{
		TLSHandshakeTimeout:   p.timeout,
		ResponseHeaderTimeout: p.timeout,
		DisableKeepAlives:     true,
	}
	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, &net.Dialer{Timeout: p.timeout})
		if err != nil {
			return nil, fmt.Errorf("socks dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks dialer for %s does not support contexts", u.Host)
		}
		transport.DialContext = contextDialer.DialContext
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return &http.Client{Transport: transport, Timeout: p.timeout}, nil
}
