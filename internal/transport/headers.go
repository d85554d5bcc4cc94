package transport

import (
	"fmt"
	"net/http"
	"strings"
)

// ProtocolVersion is the Sentry protocol version announced on every request.
const ProtocolVersion = "7"

const envelopeContentType = "application/x-sentry-envelope"

// AuthHeader builds the X-Sentry-Auth value for the given fields.
func AuthHeader(version, client, key string) string {
	return "Sentry " + strings.Join([]string{
		"sentry_version=" + version,
		"sentry_client=" + client,
		"sentry_key=" + key,
	}, ", ")
}

// clientIdentity formats name and version as "name/version".
func clientIdentity(name, version string) string {
	return fmt.Sprintf("%s/%s", name, version)
}

// requestHeaders returns the header set sent with every envelope.
// The sentry_* keys are assigned directly so they go out on the wire
// exactly as spelled, not in canonical form.
func requestHeaders(client, key string) http.Header {
	h := http.Header{}
	h["sentry_version"] = []string{ProtocolVersion}
	h["sentry_client"] = []string{client}
	h["sentry_key"] = []string{key}
	h.Set("Content-Type", envelopeContentType)
	h.Set("X-Sentry-Auth", AuthHeader(ProtocolVersion, client, key))
	return h
}
