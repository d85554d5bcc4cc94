package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/asyncsentry/asyncsentry/internal/capture"
	"github.com/asyncsentry/asyncsentry/internal/httpasync"
	"github.com/asyncsentry/asyncsentry/internal/metrics"
)

// Errors returned synchronously by SendRequest. Both indicate a caller or
// setup mistake; nothing is dispatched when either is returned.
var (
	ErrMissingDSN = errors.New("transport: the DSN option must be set to use the HTTP client")
	ErrEmptyBody  = errors.New("transport: the request body is empty")
)

// AsyncClient dispatches a request and returns without waiting for it.
type AsyncClient interface {
	SendAsync(req *http.Request) *httpasync.Promise
}

// Wrapper implements capture.HTTPClient on top of an AsyncClient.
type Wrapper struct {
	client     AsyncClient
	compressor Compressor // nil: compression unavailable
	recorder   *metrics.Recorder
	sdkName    string
	sdkVersion string

	// drainMu serializes drains; it is never taken by SendRequest.
	drainMu sync.Mutex

	mu      sync.Mutex
	pending []*httpasync.Promise // dispatch order
}

var _ capture.HTTPClient = (*Wrapper)(nil)

// Option configures a Wrapper when it is first built.
type Option func(*Wrapper)

// WithSDK overrides the client identity sent in the auth headers.
func WithSDK(name, version string) Option {
	return func(w *Wrapper) {
		w.sdkName = name
		w.sdkVersion = version
	}
}

// WithCompressor replaces the body compressor. A nil Compressor marks
// compression as unavailable, so bodies go out as-is whatever the options say.
func WithCompressor(c Compressor) Option {
	return func(w *Wrapper) { w.compressor = c }
}

// WithRecorder sets the recorder that counts request outcomes.
func WithRecorder(r *metrics.Recorder) Option {
	return func(w *Wrapper) { w.recorder = r }
}

var (
	instanceMu sync.Mutex
	instance   *Wrapper
)

// Instance returns the process-wide Wrapper, building it from client and opts
// on the first call. Later calls return the same Wrapper and ignore their
// arguments.
func Instance(client AsyncClient, opts ...Option) *Wrapper {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = newWrapper(client, opts...)
	}
	return instance
}

// reset drops the process-wide Wrapper so the next Instance call builds a
// new one. Tests only.
func reset() {
	instanceMu.Lock()
	instance = nil
	instanceMu.Unlock()
}

func newWrapper(client AsyncClient, opts ...Option) *Wrapper {
	w := &Wrapper{
		client:     client,
		compressor: NewGzipCompressor(gzip.DefaultCompression),
		sdkName:    capture.SDKName,
		sdkVersion: capture.SDKVersion,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.recorder == nil {
		w.recorder = metrics.NewRecorder()
	}
	return w
}

// SendRequest dispatches req to the envelope endpoint of opts.DSN and returns
// a synthetic 200 response without waiting for the exchange. The real outcome
// is only logged and recorded.
func (w *Wrapper) SendRequest(req *capture.Request, opts capture.Options) (*capture.Response, error) {
	if opts.DSN == nil {
		return nil, ErrMissingDSN
	}
	body := req.Body()
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	header := requestHeaders(clientIdentity(w.sdkName, w.sdkVersion), opts.DSN.GetPublicKey())

	compressed := false
	if opts.HTTPCompression && w.compressor != nil {
		zbody, err := w.compressor.Compress(body)
		if err != nil {
			slog.Warn("transport: compression failed, sending uncompressed", "err", err)
		} else {
			body = zbody
			header.Set("Content-Encoding", w.compressor.Encoding())
			compressed = true
		}
	}

	endpoint := opts.DSN.GetAPIURL().String()
	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	httpReq.Header = header

	p := w.client.SendAsync(httpReq).Then(
		func(res *httpasync.Result) { w.onSuccess(endpoint, res) },
		func(err error) { w.onFailure(endpoint, err) },
	)

	w.mu.Lock()
	w.pending = append(w.pending, p)
	w.mu.Unlock()
	w.recorder.Dispatched(compressed)

	return capture.NewResponse(http.StatusOK, nil, []byte{}), nil
}

func (w *Wrapper) onSuccess(endpoint string, res *httpasync.Result) {
	w.recorder.Succeeded()
	if res == nil {
		slog.Debug("transport: request succeeded", "endpoint", endpoint)
		return
	}
	slog.Debug("transport: request succeeded",
		"endpoint", endpoint,
		"status", res.StatusCode,
		"body", string(res.Body),
	)
}

func (w *Wrapper) onFailure(endpoint string, err error) {
	reason := metrics.ReasonTransport
	var se *httpasync.StatusError
	if errors.As(err, &se) {
		reason = metrics.ReasonStatus
	}
	w.recorder.Failed(reason)
	slog.Warn("transport: request failed",
		"endpoint", endpoint,
		"reason", reason,
		"err", err,
	)
}

// Pending returns the number of dispatched requests not yet drained.
func (w *Wrapper) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Wait blocks until every dispatched request has settled, successfully or
// not, then forgets them. It returns at once when nothing is pending.
func (w *Wrapper) Wait() {
	_ = w.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. When ctx is done first it returns the
// context error and keeps the pending set as it was.
//
// Requests dispatched while WaitContext is blocked are not awaited; they
// stay pending for the next call.
func (w *Wrapper) WaitContext(ctx context.Context) error {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if _, err := httpasync.Settle(ctx, batch); err != nil {
		return fmt.Errorf("transport: wait for %d pending requests: %w", len(batch), err)
	}

	w.mu.Lock()
	rest := w.pending[len(batch):]
	w.pending = append(make([]*httpasync.Promise, 0, len(rest)), rest...)
	w.mu.Unlock()

	w.recorder.Drained(len(batch))
	slog.Debug("transport: drained pending requests", "count", len(batch))
	return nil
}

// Recorder returns the recorder counting this Wrapper's request outcomes.
func (w *Wrapper) Recorder() *metrics.Recorder {
	return w.recorder
}
