// Package object implements the archive's per-object pipeline: for files,
// hashing plaintext while streaming it through a compressor and emitting
// Data chunks, terminated by an Epilogue; for directories, nothing beyond
// the Header chunk the caller already wrote.
package object

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/zydiig/secrets-go/internal/buffer"
	"github.com/zydiig/secrets-go/internal/chunk"
	"github.com/zydiig/secrets-go/internal/codec"
	"github.com/zydiig/secrets-go/internal/hashsum"
)

// Type is an object's kind, as written in its Header chunk.
type Type string

const (
	TypeFile      Type = "file"
	TypeDirectory Type = "directory"
)

// Header is an object descriptor, the JSON payload of a Header chunk.
type Header struct {
	ObjectType   Type     `json:"object_type"`
	Name         string   `json:"name"`
	OriginalPath string   `json:"original_path"`
	Path         []string `json:"path"`
}

// Epilogue is a file object's trailer, the JSON payload of an Epilogue
// chunk.
type Epilogue struct {
	Size uint64 `json:"size"`
	Hash string `json:"hash"`
}

// Descriptor is a finalized object as it appears in the manifest: a Header
// with its Epilogue inlined, absent for directories.
type Descriptor struct {
	Header
	Epilogue *Epilogue `json:"epilogue,omitempty"`
}

// Manifest is the terminal End chunk's payload.
type Manifest struct {
	Objects []Descriptor `json:"objects"`
}

// readBufferSize is the suggested plaintext read granularity for file
// objects.
const readBufferSize = 2 << 20 // 2 MiB

// WriteFile streams src's plaintext through a fresh compressor at level,
// emitting Data chunks via w and hashing the plaintext as it goes. It
// returns the completed epilogue; the caller is responsible for writing it
// as an Epilogue chunk.
func WriteFile(w *chunk.Writer, src io.Reader, level int) (*Epilogue, error) {
	comp, err := codec.NewCompressor(level)
	if err != nil {
		return nil, err
	}
	h := hashsum.New()
	buf := make([]byte, readBufferSize)
	var size uint64

	defer comp.Close()
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += uint64(n)
			out := comp.Compress(buf[:n])
			if len(out) > 0 {
				if werr := w.WriteChunk(chunk.Data, out); werr != nil {
					return nil, werr
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}

	return &Epilogue{Size: size, Hash: hashsum.HexSum(h.Sum(nil))}, nil
}

// ErrFraming is returned when a chunk appears in an invalid position within
// an object's stream (e.g. anything but Data or Epilogue after a file's
// Header).
var ErrFraming = errors.New("object: unexpected chunk kind in object stream")

// Reader streams the decompressed plaintext of one file object, reading
// Data chunks from an underlying chunk.Reader until it reaches that
// object's Epilogue.
type Reader struct {
	cr       *chunk.Reader
	dec      *codec.Decompressor
	buf      buffer.Buffer
	epilogue *Epilogue
	done     bool
	err      error
}

// NewReader starts reading a file object's Data chunks from cr. The
// caller must already have consumed the object's Header chunk.
func NewReader(cr *chunk.Reader) (*Reader, error) {
	dec, err := codec.NewDecompressor()
	if err != nil {
		return nil, err
	}
	return &Reader{cr: cr, dec: dec}, nil
}

// Read implements io.Reader, returning decompressed plaintext. It returns
// io.EOF once the object's Epilogue chunk has been read; at that point
// Epilogue returns the object's trailer.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.buf.Len() > 0 {
		return r.buf.DrainInto(p), nil
	}
	if r.done {
		return 0, io.EOF
	}

	for {
		kind, payload, err := r.cr.ReadChunk()
		if err != nil {
			r.err = err
			return 0, err
		}
		switch kind {
		case chunk.Data:
			out, derr := r.dec.Decompress(payload)
			if derr != nil {
				r.err = derr
				return 0, derr
			}
			if len(out) == 0 {
				continue
			}
			r.buf.Put(out)
			return r.buf.DrainInto(p), nil
		case chunk.Epilogue:
			var ep Epilogue
			if err := json.Unmarshal(payload, &ep); err != nil {
				r.err = err
				return 0, err
			}
			r.epilogue = &ep
			r.done = true
			r.dec.Close()
			return 0, io.EOF
		default:
			r.dec.Close()
			r.err = ErrFraming
			return 0, ErrFraming
		}
	}
}

// Epilogue returns the object's trailer once Read has returned io.EOF, and
// nil before that.
func (r *Reader) Epilogue() *Epilogue {
	return r.epilogue
}

// Close releases resources without requiring the caller to read to EOF.
func (r *Reader) Close() error {
	if r.done {
		return nil
	}
	return r.dec.Close()
}
