// Package chunk implements the archive's typed record stream over
// framestream: it assigns stable kind tags to frames, drives volume
// rotation on both sides, and hides VolumeEnd chunks from its caller
// entirely.
package chunk

import (
	"errors"

	"github.com/zydiig/secrets-go/internal/framestream"
	"github.com/zydiig/secrets-go/internal/secretstream"
	"github.com/zydiig/secrets-go/internal/volume"
)

// Kind identifies the role of a chunk's payload.
type Kind byte

const (
	Data      Kind = 0
	Header    Kind = 1
	Epilogue  Kind = 2
	VolumeEnd Kind = 3
	End       Kind = 4
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "Data"
	case Header:
		return "Header"
	case Epilogue:
		return "Epilogue"
	case VolumeEnd:
		return "VolumeEnd"
	case End:
		return "End"
	default:
		return "Unknown"
	}
}

// frameOverhead is the on-wire size of a frame carrying an empty payload:
// the info message ciphertext plus the payload message's authentication
// tag.
const frameOverhead = 5 + secretstream.Overhead + secretstream.Overhead

// Writer writes typed chunks, transparently rotating to the next volume
// file when volume splitting is configured.
type Writer struct {
	fw         *framestream.Writer
	rotator    volume.WriteRotator
	volumeSize int64 // 0 disables rotation
}

// NewWriter wraps fw for typed chunk output. If rotator is non-nil and
// volumeSize is positive, WriteChunk rotates to a new volume before a
// chunk would overflow the current one.
func NewWriter(fw *framestream.Writer, rotator volume.WriteRotator, volumeSize int64) *Writer {
	return &Writer{fw: fw, rotator: rotator, volumeSize: volumeSize}
}

// WriteChunk writes one chunk, rotating the underlying volume first if
// necessary. kind must not be VolumeEnd; the writer emits VolumeEnd chunks
// itself as part of rotation.
func (w *Writer) WriteChunk(kind Kind, payload []byte) error {
	if kind == VolumeEnd {
		panic("chunk: WriteChunk called with VolumeEnd")
	}
	if w.volumeSize > 0 {
		projected := int64(frameOverhead + len(payload))
		if volume.ShouldRotate(w.rotator.BytesWritten(), projected, w.volumeSize) {
			if err := w.fw.WriteFrame(byte(VolumeEnd), nil); err != nil {
				return err
			}
			if err := w.rotator.Rotate(); err != nil {
				return err
			}
		}
	}
	return w.fw.WriteFrame(byte(kind), payload)
}

// Reader reads typed chunks, transparently following VolumeEnd markers
// across volume files. Callers never observe a VolumeEnd chunk.
type Reader struct {
	fr      *framestream.Reader
	rotator volume.ReadRotator
}

// NewReader wraps fr for typed chunk input. rotator may be nil for
// single-volume archives; ReadChunk fails with ErrUnexpectedVolumeEnd if a
// VolumeEnd chunk is encountered with no rotator configured.
func NewReader(fr *framestream.Reader, rotator volume.ReadRotator) *Reader {
	return &Reader{fr: fr, rotator: rotator}
}

// ErrUnexpectedVolumeEnd is returned when a VolumeEnd chunk appears in a
// stream that was opened without volume support.
var ErrUnexpectedVolumeEnd = errors.New("chunk: unexpected VolumeEnd with no configured volume rotator")

// ReadChunk reads the next chunk, recursing past any number of VolumeEnd
// markers until it finds a chunk with a different kind.
func (r *Reader) ReadChunk() (Kind, []byte, error) {
	for {
		kind, payload, err := r.fr.ReadFrame()
		if err != nil {
			return 0, nil, err
		}
		if Kind(kind) != VolumeEnd {
			return Kind(kind), payload, nil
		}
		if r.rotator == nil {
			return 0, nil, ErrUnexpectedVolumeEnd
		}
		if err := r.rotator.Rotate(); err != nil {
			return 0, nil, err
		}
	}
}
