// Package httpasync is a non-blocking HTTP client: SendAsync starts the
// exchange on a background goroutine and returns a Promise immediately.
//
// A Promise settles exactly once, fulfilled with a Result or rejected with an
// error. Then attaches continuations and returns a new Promise that settles
// after the continuation has run. Settle waits for a set of promises to
// settle, regardless of outcome.
//
// Client wraps a pooled go-cleanhttp client configured from
// config.HTTPConfig (timeout, TLS). The number of exchanges on the wire is
// bounded by a weighted semaphore acquired inside the background goroutine,
// so SendAsync itself never waits. Responses outside the 2xx range reject
// with *StatusError.
package httpasync
