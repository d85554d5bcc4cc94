// Package capture is the diagnostics-SDK side of the transport boundary.
//
// It defines the synchronous send contract (HTTPClient) together with the
// values that cross it: Request carries one serialized envelope, Options
// carries the destination DSN and the compression flag, Response is what the
// transport reports back.
//
// Client is a minimal capture API on top of that contract. It stamps events
// with an id, timestamp, SDK info and release metadata, frames them as
// Sentry envelopes and hands the bytes to its HTTPClient. Options are held
// behind an atomic pointer so a config reload can swap them while captures
// are in progress.
package capture
