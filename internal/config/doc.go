// Package config loads and watches the asyncsentry configuration file (config.yaml).
//
// Top-level types:
//   - Config{Sentry, HTTP, ShutdownTimeout, Metrics}: full config tree parsed from YAML
//   - SentryConfig: dsn_env, http_compression, environment, release, server_name;
//     DSN() resolves the connection string from the named environment variable
//   - HTTPConfig: timeout, max_concurrent, tls; consumed by httpasync.New
//   - MetricsConfig: optional textfile path written on shutdown
//
// Load(path) reads the YAML file, applies defaults (1s timeout, 10 concurrent
// exchanges, 10s shutdown timeout, DSN read from $DSN), then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It watches the parent directory so
// atomic-save editors (vim, VS Code) that rename a temp file over the config
// are still picked up, and debounces the burst of events one save produces.
package config
