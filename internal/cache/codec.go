package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/klauspost/compress/zstd"
)

const (
	entryExt   = ".waveform"
	tempPrefix = ".tmp-"

	entryMagic    = "FPWF"
	entryVersion  = 1
	flagZstd      = 1 << 0
	headerSize    = len(entryMagic) + 2 + 4
	maxPayloadLen = envelope.Points * 4
)

// codec serializes envelopes to entry bodies. Layout:
//
//	magic "FPWF" | version u8 | flags u8 | count u32le | payload
//
// The payload is count little-endian float32 values, zstd framed when
// flagZstd is set.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec(compressionLevel int) (*codec, error) {
	c := &codec{}

	if compressionLevel > 0 {
		var err error
		c.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// Compressed entries stay readable after compression is turned off.
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	c.decoder = dec

	return c, nil
}

func (c *codec) encode(env envelope.Envelope) []byte {
	payload := make([]byte, 4*len(env))
	for i, v := range env {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(v))
	}

	var flags byte
	if c.encoder != nil && len(payload) > 0 {
		// Only keep the compressed form when it is actually smaller.
		if compressed := c.encoder.EncodeAll(payload, nil); len(compressed) < len(payload) {
			payload = compressed
			flags |= flagZstd
		}
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out, entryMagic)
	out[4] = entryVersion
	out[5] = flags
	binary.LittleEndian.PutUint32(out[6:], uint32(len(env))) //nolint:gosec
	return append(out, payload...)
}

func (c *codec) decode(data []byte) (envelope.Envelope, error) {
	if len(data) < headerSize || string(data[:4]) != entryMagic {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	if data[4] != entryVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupt, data[4])
	}

	flags := data[5]
	if flags&^flagZstd != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#02x", ErrCorrupt, flags)
	}
	count := binary.LittleEndian.Uint32(data[6:])
	if count > envelope.Points {
		return nil, fmt.Errorf("%w: %d points", ErrCorrupt, count)
	}

	payload := data[headerSize:]
	if flags&flagZstd != 0 {
		var err error
		payload, err = c.decoder.DecodeAll(payload, make([]byte, 0, maxPayloadLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	if len(payload) != int(count)*4 {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, len(payload), count*4)
	}

	env := make(envelope.Envelope, count)
	for i := range env {
		env[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return env, nil
}

func (c *codec) close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	c.decoder.Close()
}
