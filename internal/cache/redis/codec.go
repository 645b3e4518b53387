package redis

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	markerRaw  byte = 0x00
	markerZstd byte = 0x01

	// Values below this size are stored raw.
	minCompressSize = 256
)

var errEmptyValue = errors.New("empty value")

// codec frames stored values with a one-byte marker and optionally compresses them.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// newCodec creates a codec. A level of zero disables compression on write;
// compressed values are always readable.
func newCodec(level int) (*codec, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	c := &codec{decoder: decoder}
	if level > 0 {
		c.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	return c, nil
}

func (c *codec) encode(value []byte) []byte {
	if c.encoder != nil && len(value) >= minCompressSize {
		compressed := c.encoder.EncodeAll(value, []byte{markerZstd})
		if len(compressed) < len(value)+1 {
			return compressed
		}
	}

	out := make([]byte, 0, len(value)+1)
	out = append(out, markerRaw)
	return append(out, value...)
}

func (c *codec) decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, errEmptyValue
	}

	switch stored[0] {
	case markerRaw:
		return stored[1:], nil
	case markerZstd:
		out, err := c.decoder.DecodeAll(stored[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress value: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value marker 0x%02x", stored[0])
	}
}

func (c *codec) close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	c.decoder.Close()
}
