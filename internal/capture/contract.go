package capture

import (
	"net/http"

	"github.com/getsentry/sentry-go"
)

// Request is one outbound payload.
type Request struct {
	body []byte
}

// SetBody sets the serialized envelope.
func (r *Request) SetBody(b []byte) {
	r.body = b
}

// Body returns the serialized envelope.
func (r *Request) Body() []byte {
	return r.body
}

// Options identify the destination of a send and how to shape it.
type Options struct {
	// DSN is the parsed destination. Nil means no destination is configured.
	DSN *sentry.Dsn

	HTTPCompression bool

	Environment string
	Release     string
	ServerName  string
}

// Response is the transport's answer to a send.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse builds a Response, allocating an empty header set when h is nil.
func NewResponse(status int, h http.Header, body []byte) *Response {
	if h == nil {
		h = http.Header{}
	}
	return &Response{StatusCode: status, Header: h, Body: body}
}

// IsSuccess reports whether the status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// HTTPClient sends one request synchronously from the caller's point of view.
type HTTPClient interface {
	SendRequest(req *Request, opts Options) (*Response, error)
}
