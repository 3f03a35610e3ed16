// Package codec implements the archive's compression contract over
// github.com/klauspost/compress/zstd: each Data chunk is compressed and
// decompressed as its own complete, independently decodable zstd frame, so
// neither side needs to track partial-frame state across chunk boundaries.
package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor is a single-use encoder that turns each plaintext chunk handed
// to it into one self-contained zstd frame.
type Compressor struct {
	enc *zstd.Encoder
}

// NewCompressor creates a Compressor at the given zstd level (-5..22,
// following zstd's own level scale) with the frame content checksum
// enabled as a second, independent integrity check alongside the
// surrounding AEAD authentication.
func NewCompressor(level int) (*Compressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderChecksum(true),
	)
	if err != nil {
		return nil, err
	}
	return &Compressor{enc: enc}, nil
}

// Compress returns a complete zstd frame encoding plaintext. The returned
// frame can be decoded on its own by a Decompressor, independent of any
// frame produced by earlier or later calls. Returns nil for empty input.
func (c *Compressor) Compress(plaintext []byte) []byte {
	if len(plaintext) == 0 {
		return nil
	}
	return c.enc.EncodeAll(plaintext, nil)
}

// Close releases the encoder's resources. Safe to call more than once.
func (c *Compressor) Close() error {
	return c.enc.Close()
}

// ErrCodec wraps any failure the underlying zstd decoder reports, such as a
// corrupt frame or a checksum mismatch.
var ErrCodec = errors.New("codec: decompression failed")

// Decompressor decodes the zstd frames a Compressor produced, one Data
// chunk at a time.
type Decompressor struct {
	dec *zstd.Decoder
}

// NewDecompressor starts a fresh decoder for one object's compressed
// frames.
func NewDecompressor() (*Decompressor, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Decompressor{dec: dec}, nil
}

// Decompress decodes one complete frame produced by Compressor.Compress and
// returns its plaintext in full; unlike a streaming decoder there is no
// residual output left for a later call to produce.
func (d *Decompressor) Decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	out, err := d.dec.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return out, nil
}

// Close releases the decoder's resources. Safe to call more than once.
func (d *Decompressor) Close() error {
	d.dec.Close()
	return nil
}
