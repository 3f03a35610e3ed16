// Package framestream implements the archive's length-framed record layer:
// every logical frame is two independently authenticated secretstream
// messages, an info message carrying {kind, ciphertext length} and a
// payload message carrying the chunk bytes. Because the length lives
// inside an authenticated message, a reader can never be redirected to
// consume an attacker-chosen number of bytes.
package framestream

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/zydiig/secrets-go/internal/secretstream"
)

// infoSize is the plaintext size of the info message: 1 byte kind plus a
// big-endian uint32 ciphertext length.
const infoSize = 5

// ErrFramingTooLarge is returned when a payload's authenticated-encrypted
// length would not fit the info message's uint32 field.
var ErrFramingTooLarge = errors.New("framestream: payload too large to frame")

// Writer writes length-framed records under a secretstream.Pusher.
type Writer struct {
	w  io.Writer
	p  *secretstream.Pusher
	hd []byte
}

// NewWriter derives a fresh pusher and writes its public header to w.
func NewWriter(w io.Writer, key []byte) (*Writer, error) {
	p, header, err := secretstream.NewPusher(key)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(header); err != nil {
		return nil, err
	}
	return &Writer{w: w, p: p, hd: header}, nil
}

// NewWriterWithHeader derives a pusher for a caller-supplied header without
// writing the header to w, for callers that have already embedded it
// elsewhere (such as inside a larger format header written ahead of the
// frame stream).
func NewWriterWithHeader(w io.Writer, key, header []byte) (*Writer, error) {
	p, err := secretstream.NewPusherWithHeader(key, header)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, p: p, hd: header}, nil
}

// WriteFrame authenticates and writes the info and payload messages for one
// chunk. kind and payload are defined by the chunk layer.
func (fw *Writer) WriteFrame(kind byte, payload []byte) error {
	ciphertextLen := len(payload) + secretstream.Overhead
	if ciphertextLen > 1<<32-1 {
		return ErrFramingTooLarge
	}

	info := make([]byte, infoSize)
	info[0] = kind
	binary.BigEndian.PutUint32(info[1:], uint32(ciphertextLen))

	if _, err := fw.w.Write(fw.p.Push(info, nil)); err != nil {
		return err
	}
	if _, err := fw.w.Write(fw.p.Push(payload, nil)); err != nil {
		return err
	}
	return nil
}

// Reader reads length-framed records under a secretstream.Puller.
type Reader struct {
	r  io.Reader
	pl *secretstream.Puller
}

// NewReader reads the public header from r and derives a matching puller.
func NewReader(r io.Reader, key []byte) (*Reader, error) {
	header := make([]byte, secretstream.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	pl, err := secretstream.NewPuller(key, header)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, pl: pl}, nil
}

// NewReaderWithHeader derives a puller for a caller-supplied header without
// reading the header from r, for callers that have already consumed it as
// part of a larger format header.
func NewReaderWithHeader(r io.Reader, key, header []byte) (*Reader, error) {
	pl, err := secretstream.NewPuller(key, header)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, pl: pl}, nil
}

// ErrTruncated is returned when the underlying reader ends before a
// complete frame has been read.
var ErrTruncated = errors.New("framestream: truncated frame")

// ReadFrame reads and authenticates one info message and its associated
// payload message, returning the chunk kind and payload.
func (fr *Reader) ReadFrame() (kind byte, payload []byte, err error) {
	infoCiphertext := make([]byte, infoSize+secretstream.Overhead)
	if _, err := io.ReadFull(fr.r, infoCiphertext); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil, ErrTruncated
		}
		return 0, nil, err
	}
	info, err := fr.pl.Pull(infoCiphertext, nil)
	if err != nil {
		return 0, nil, err
	}
	kind = info[0]
	ciphertextLen := binary.BigEndian.Uint32(info[1:])

	payloadCiphertext := make([]byte, ciphertextLen)
	if _, err := io.ReadFull(fr.r, payloadCiphertext); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil, ErrTruncated
		}
		return 0, nil, err
	}
	payload, err = fr.pl.Pull(payloadCiphertext, nil)
	if err != nil {
		return 0, nil, err
	}
	return kind, payload, nil
}
