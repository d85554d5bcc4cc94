package httpasync

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// errRejected stands in for a nil rejection reason.
var errRejected = errors.New("httpasync: promise rejected")

// Result is the fulfilled value of an exchange.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Promise is a handle on one asynchronous exchange.
type Promise struct {
	once   sync.Once
	done   chan struct{}
	result *Result
	err    error
}

// NewPromise returns a pending Promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve fulfils p with r. Calls after the first settlement are ignored.
func (p *Promise) Resolve(r *Result) {
	p.settle(r, nil)
}

// Reject rejects p with err. Calls after the first settlement are ignored.
func (p *Promise) Reject(err error) {
	if err == nil {
		err = errRejected
	}
	p.settle(nil, err)
}

func (p *Promise) settle(r *Result, err error) {
	p.once.Do(func() {
		p.result = r
		p.err = err
		close(p.done)
	})
}

// Done is closed once p has settled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether p has settled without blocking.
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until p settles and returns its outcome.
func (p *Promise) Wait() (*Result, error) {
	<-p.done
	return p.result, p.err
}

// Then runs onFulfilled or onRejected once p settles. Either may be nil.
//
// The returned Promise settles after the continuation has returned. A
// continuation handles the outcome, so the returned Promise is always
// fulfilled, with p's Result (nil when p was rejected).
func (p *Promise) Then(onFulfilled func(*Result), onRejected func(error)) *Promise {
	next := NewPromise()
	go func() {
		res, err := p.Wait()
		if err != nil {
			if onRejected != nil {
				onRejected(err)
			}
		} else if onFulfilled != nil {
			onFulfilled(res)
		}
		next.Resolve(res)
	}()
	return next
}

// Outcome is the settled state of one promise as reported by Settle.
type Outcome struct {
	Result *Result
	Err    error
}

// Settle waits for every promise to settle and returns their outcomes in the
// order given. Rejections are reported in the outcomes, not as the error.
// The error is non-nil only when ctx is done first.
func Settle(ctx context.Context, promises []*Promise) ([]Outcome, error) {
	out := make([]Outcome, len(promises))
	for i, p := range promises {
		select {
		case <-p.Done():
			out[i] = Outcome{Result: p.result, Err: p.err}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}
