// Package transport adapts the synchronous capture.HTTPClient contract onto
// the non-blocking httpasync client.
//
// Wrapper.SendRequest validates its input, shapes the request (Sentry auth
// headers, optional gzip body), hands it to the async client and returns a
// synthetic 200 response straight away. The network outcome is observed only
// by the continuations attached to the returned promise, which log it and
// count it in a metrics.Recorder. Failed exchanges are not retried.
//
// Every dispatched promise is kept until Wait (or WaitContext) observes it
// settled; Wait is the only call in this package that blocks.
//
// Instance returns the process-wide Wrapper, building it on first use.
// Arguments passed on later calls are ignored.
package transport
