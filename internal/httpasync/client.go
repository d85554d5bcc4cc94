package httpasync

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sync/semaphore"

	"github.com/asyncsentry/asyncsentry/internal/config"
)

// maxResponseBody caps how much of a response body is kept on the Result.
const maxResponseBody = 1 << 20

// StatusError rejects an exchange whose response status is outside 2xx.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client dispatches HTTP requests without blocking the caller.
type Client struct {
	hc  *http.Client
	sem *semaphore.Weighted // nil means unbounded
}

// New builds a Client from cfg on top of a pooled cleanhttp client.
func New(cfg config.HTTPConfig) (*Client, error) {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = cfg.Timeout

	tlsCfg, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("httpasync: %w", err)
	}
	if tr, ok := hc.Transport.(*http.Transport); ok {
		tr.TLSClientConfig = tlsCfg
		if cfg.MaxConcurrent > 0 {
			tr.MaxConnsPerHost = cfg.MaxConcurrent
		}
	}

	return NewWithHTTPClient(hc, cfg.MaxConcurrent), nil
}

// NewWithHTTPClient wraps an existing http.Client. maxConcurrent <= 0 leaves
// the number of live exchanges unbounded.
func NewWithHTTPClient(hc *http.Client, maxConcurrent int) *Client {
	c := &Client{hc: hc}
	if maxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return c
}

// SendAsync starts req in the background and returns its Promise.
// The request's context governs cancellation, including time spent waiting
// for a concurrency slot.
func (c *Client) SendAsync(req *http.Request) *Promise {
	p := NewPromise()
	go func() {
		if c.sem != nil {
			if err := c.sem.Acquire(req.Context(), 1); err != nil {
				p.Reject(fmt.Errorf("acquire slot: %w", err))
				return
			}
			defer c.sem.Release(1)
		}
		res, err := c.do(req)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(res)
	}()
	return p
}

func (c *Client) do(req *http.Request) (*Result, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return &Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// buildTLSConfig loads the optional CA bundle from cfg.
func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	if cfg.CAFile == "" {
		return tlsCfg, nil
	}

	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.CAFile)
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}
