package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type envelopeHeader struct {
	EventID sentry.EventID  `json:"event_id"`
	SentAt  time.Time       `json:"sent_at"`
	DSN     string          `json:"dsn,omitempty"`
	SDK     *sentry.SdkInfo `json:"sdk,omitempty"`
}

type itemHeader struct {
	Type   string `json:"type"`
	Length int    `json:"length"`
}

// encodeEnvelope frames ev as a single-item envelope:
// envelope header, item header and payload, each terminated by a newline.
func encodeEnvelope(ev *sentry.Event, dsn *sentry.Dsn, sentAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	hdr := envelopeHeader{
		EventID: ev.EventID,
		SentAt:  sentAt.UTC(),
		SDK:     &ev.Sdk,
	}
	if dsn != nil {
		hdr.DSN = dsn.String()
	}

	itemType := "event"
	if ev.Type == "transaction" {
		itemType = "transaction"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("encode envelope header: %w", err)
	}
	if err := enc.Encode(itemHeader{Type: itemType, Length: len(payload)}); err != nil {
		return nil, fmt.Errorf("encode item header: %w", err)
	}
	buf.Write(payload)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
