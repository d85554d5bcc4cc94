package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

// recordingTransport implements HTTPClient and keeps every request it sees.
type recordingTransport struct {
	reqs   []*Request
	opts   []Options
	status int
	err    error
}

func (r *recordingTransport) SendRequest(req *Request, opts Options) (*Response, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.reqs = append(r.reqs, req)
	r.opts = append(r.opts, opts)
	status := r.status
	if status == 0 {
		status = 200
	}
	return NewResponse(status, nil, nil), nil
}

func mustDSN(t *testing.T) *sentry.Dsn {
	t.Helper()
	dsn, err := sentry.NewDsn("https://public-key@sentry.example.com/1")
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	return dsn
}

// splitEnvelope returns the three newline-terminated parts of a one-item envelope.
func splitEnvelope(t *testing.T, body []byte) (hdr, item map[string]any, payload []byte) {
	t.Helper()
	parts := bytes.SplitN(body, []byte("\n"), 3)
	if len(parts) != 3 {
		t.Fatalf("envelope has %d parts, want 3: %q", len(parts), body)
	}
	if err := json.Unmarshal(parts[0], &hdr); err != nil {
		t.Fatalf("envelope header: %v", err)
	}
	if err := json.Unmarshal(parts[1], &item); err != nil {
		t.Fatalf("item header: %v", err)
	}
	return hdr, item, bytes.TrimSuffix(parts[2], []byte("\n"))
}

func TestCaptureMessage_BuildsEnvelope(t *testing.T) {
	tr := &recordingTransport{}
	c := NewClient(Options{DSN: mustDSN(t), Environment: "prod", Release: "1.0.0"}, tr)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	id, err := c.CaptureMessage("disk almost full", sentry.LevelWarning)
	if err != nil {
		t.Fatalf("CaptureMessage() err = %v", err)
	}
	if len(id) != 32 {
		t.Errorf("event id %q: want 32 hex chars", id)
	}
	if len(tr.reqs) != 1 {
		t.Fatalf("transport saw %d requests, want 1", len(tr.reqs))
	}

	hdr, item, payload := splitEnvelope(t, tr.reqs[0].Body())
	if hdr["event_id"] != string(id) {
		t.Errorf("envelope event_id = %v, want %s", hdr["event_id"], id)
	}
	if hdr["dsn"] != "https://public-key@sentry.example.com/1" {
		t.Errorf("envelope dsn = %v", hdr["dsn"])
	}
	if item["type"] != "event" {
		t.Errorf("item type = %v, want event", item["type"])
	}
	if int(item["length"].(float64)) != len(payload) {
		t.Errorf("item length = %v, payload is %d bytes", item["length"], len(payload))
	}

	var ev map[string]any
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ev["message"] != "disk almost full" {
		t.Errorf("message = %v", ev["message"])
	}
	if ev["level"] != "warning" {
		t.Errorf("level = %v", ev["level"])
	}
	if ev["environment"] != "prod" || ev["release"] != "1.0.0" {
		t.Errorf("environment/release = %v/%v", ev["environment"], ev["release"])
	}
	sdk, _ := ev["sdk"].(map[string]any)
	if sdk["name"] != SDKName {
		t.Errorf("sdk.name = %v, want %s", sdk["name"], SDKName)
	}
}

func TestCaptureException_OrdersCauseFirst(t *testing.T) {
	tr := &recordingTransport{}
	c := NewClient(Options{DSN: mustDSN(t)}, tr)

	root := errors.New("connection reset")
	if _, err := c.CaptureException(fmt.Errorf("flush batch: %w", root)); err != nil {
		t.Fatalf("CaptureException() err = %v", err)
	}

	_, _, payload := splitEnvelope(t, tr.reqs[0].Body())
	var ev struct {
		Exception json.RawMessage `json:"exception"`
		Level     string          `json:"level"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	values := exceptionValues(t, ev.Exception)
	if len(values) != 2 {
		t.Fatalf("exceptions = %d, want 2", len(values))
	}
	if values[0] != "connection reset" {
		t.Errorf("exception[0] = %q, want root cause", values[0])
	}
	if ev.Level != "error" {
		t.Errorf("level = %q, want error", ev.Level)
	}
}

// exceptionValues accepts both the list and the {"values": [...]} encodings.
func exceptionValues(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	type exc struct {
		Value string `json:"value"`
	}
	var list []exc
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Values []exc `json:"values"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			t.Fatalf("exception: %v", err)
		}
		list = wrapped.Values
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Value)
	}
	return out
}

func TestCaptureException_Nil(t *testing.T) {
	tr := &recordingTransport{}
	c := NewClient(Options{DSN: mustDSN(t)}, tr)
	if _, err := c.CaptureException(nil); err == nil {
		t.Fatal("CaptureException(nil) err = nil, want error")
	}
	if len(tr.reqs) != 0 {
		t.Errorf("transport saw %d requests, want 0", len(tr.reqs))
	}
}

func TestCaptureEvent_PropagatesTransportError(t *testing.T) {
	sentinel := errors.New("dsn missing")
	c := NewClient(Options{}, &recordingTransport{err: sentinel})

	if _, err := c.CaptureMessage("x", sentry.LevelInfo); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapped %v", err, sentinel)
	}
}

func TestCaptureEvent_RefusedStatus(t *testing.T) {
	c := NewClient(Options{DSN: mustDSN(t)}, &recordingTransport{status: 503})
	if _, err := c.CaptureMessage("x", sentry.LevelInfo); err == nil {
		t.Fatal("err = nil, want error for non-2xx response")
	}
}

func TestSetOptions_AppliesToNextCapture(t *testing.T) {
	tr := &recordingTransport{}
	c := NewClient(Options{DSN: mustDSN(t), HTTPCompression: false}, tr)

	updated := c.Options()
	updated.HTTPCompression = true
	c.SetOptions(updated)

	if _, err := c.CaptureMessage("x", sentry.LevelInfo); err != nil {
		t.Fatalf("CaptureMessage() err = %v", err)
	}
	if !tr.opts[0].HTTPCompression {
		t.Error("transport received stale options")
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	for status, want := range map[int]bool{200: true, 204: true, 302: false, 429: false} {
		if got := NewResponse(status, nil, nil).IsSuccess(); got != want {
			t.Errorf("IsSuccess(%d) = %v, want %v", status, got, want)
		}
	}
}
