// Package archive implements the archive driver (C6): the writer and
// reader state machines that sit atop internal/chunk and internal/object,
// plus the binary format header (C7) that opens volume 001.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zydiig/secrets-go/internal/kdf"
	"github.com/zydiig/secrets-go/internal/secretstream"
)

// headerSize is the on-disk size of the fixed-layout prefix that opens
// volume 001: salt, opslimit, memlimit, and the secretstream public header.
const headerSize = kdf.SaltSize + 8 + 8 + secretstream.HeaderSize

// formatHeader is the fixed-layout prefix written once, at the start of
// volume 001 only. Subsequent volumes carry no header, only frames.
type formatHeader struct {
	salt         [kdf.SaltSize]byte
	opslimit     uint64
	memlimit     uint64
	streamHeader [secretstream.HeaderSize]byte
}

func (h *formatHeader) marshal() []byte {
	b := make([]byte, headerSize)
	off := copy(b, h.salt[:])
	binary.BigEndian.PutUint64(b[off:], h.opslimit)
	off += 8
	binary.BigEndian.PutUint64(b[off:], h.memlimit)
	off += 8
	copy(b[off:], h.streamHeader[:])
	return b
}

// ParseError reports a malformed or out-of-range format header field.
type ParseError string

func (e ParseError) Error() string {
	return "archive: malformed header: " + string(e)
}

func parseFormatHeader(r io.Reader) (*formatHeader, error) {
	b := make([]byte, headerSize)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ParseError(fmt.Sprintf("truncated header: %v", err))
		}
		return nil, err
	}
	h := &formatHeader{}
	off := copy(h.salt[:], b[:kdf.SaltSize])
	h.opslimit = binary.BigEndian.Uint64(b[off:])
	off += 8
	h.memlimit = binary.BigEndian.Uint64(b[off:])
	off += 8
	copy(h.streamHeader[:], b[off:off+secretstream.HeaderSize])
	return h, nil
}
