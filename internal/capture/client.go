package capture

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// SDKName identifies this SDK in events and in the transport's auth header.
const SDKName = "sentry.go"

// SDKVersion is the version reported alongside SDKName.
var SDKVersion = sentry.SDKVersion

// maxErrorDepth bounds how far CaptureException follows an error chain.
const maxErrorDepth = 10

// Client captures events and hands them, serialized, to an HTTPClient.
type Client struct {
	opts      atomic.Pointer[Options]
	transport HTTPClient
	now       func() time.Time
}

// NewClient returns a Client sending through transport with the given options.
func NewClient(opts Options, transport HTTPClient) *Client {
	c := &Client{transport: transport, now: time.Now}
	c.opts.Store(&opts)
	return c
}

// Options returns a copy of the options currently in effect.
func (c *Client) Options() Options {
	return *c.opts.Load()
}

// SetOptions replaces the options used by subsequent captures.
func (c *Client) SetOptions(opts Options) {
	c.opts.Store(&opts)
}

// CaptureMessage sends msg at the given level.
func (c *Client) CaptureMessage(msg string, level sentry.Level) (sentry.EventID, error) {
	ev := sentry.NewEvent()
	ev.Message = msg
	ev.Level = level
	return c.CaptureEvent(ev)
}

// CaptureException sends err and its wrapped causes, outermost last.
func (c *Client) CaptureException(err error) (sentry.EventID, error) {
	if err == nil {
		return "", errors.New("capture: nil error")
	}
	ev := sentry.NewEvent()
	ev.Level = sentry.LevelError
	for e, depth := err, 0; e != nil && depth < maxErrorDepth; e, depth = errors.Unwrap(e), depth+1 {
		ev.Exception = append(ev.Exception, sentry.Exception{
			Type:       reflect.TypeOf(e).String(),
			Value:      e.Error(),
			Stacktrace: sentry.ExtractStacktrace(e),
		})
	}
	for i, j := 0, len(ev.Exception)-1; i < j; i, j = i+1, j-1 {
		ev.Exception[i], ev.Exception[j] = ev.Exception[j], ev.Exception[i]
	}
	return c.CaptureEvent(ev)
}

// CaptureEvent fills in the event's envelope metadata, serializes it and
// sends it. Errors reported by the transport are returned unchanged in
// meaning; a returned id means the transport accepted the payload, not that
// it was delivered.
func (c *Client) CaptureEvent(ev *sentry.Event) (sentry.EventID, error) {
	opts := c.Options()
	c.prepare(ev, opts)

	body, err := encodeEnvelope(ev, opts.DSN, c.now())
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}

	var req Request
	req.SetBody(body)
	resp, err := c.transport.SendRequest(&req, opts)
	if err != nil {
		return "", fmt.Errorf("capture: send event %s: %w", ev.EventID, err)
	}
	if !resp.IsSuccess() {
		slog.Warn("capture: transport refused event",
			"event_id", ev.EventID, "status", resp.StatusCode)
		return "", fmt.Errorf("capture: transport returned status %d", resp.StatusCode)
	}

	slog.Debug("capture: event accepted", "event_id", ev.EventID, "bytes", len(body))
	return ev.EventID, nil
}

func (c *Client) prepare(ev *sentry.Event, opts Options) {
	if ev.EventID == "" {
		id := uuid.New()
		ev.EventID = sentry.EventID(hex.EncodeToString(id[:]))
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}
	if ev.Level == "" {
		ev.Level = sentry.LevelInfo
	}
	if ev.Platform == "" {
		ev.Platform = "go"
	}
	if ev.Environment == "" {
		ev.Environment = opts.Environment
	}
	if ev.Release == "" {
		ev.Release = opts.Release
	}
	if ev.ServerName == "" {
		ev.ServerName = opts.ServerName
	}
	ev.Sdk.Name = SDKName
	ev.Sdk.Version = SDKVersion
}
