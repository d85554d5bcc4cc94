package transport

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Compressor encodes request bodies. Encoding is the Content-Encoding token.
type Compressor interface {
	Compress(body []byte) ([]byte, error)
	Encoding() string
}

// gzipCompressor is the default Compressor.
type gzipCompressor struct {
	level int
}

// NewGzipCompressor returns a gzip Compressor at the given level.
// Use gzip.DefaultCompression unless there is a reason not to.
func NewGzipCompressor(level int) Compressor {
	return gzipCompressor{level: level}
}

func (g gzipCompressor) Compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Encoding() string {
	return "gzip"
}
