package archive

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/zydiig/secrets-go/internal/chunk"
	"github.com/zydiig/secrets-go/internal/framestream"
	"github.com/zydiig/secrets-go/internal/kdf"
	"github.com/zydiig/secrets-go/internal/object"
	"github.com/zydiig/secrets-go/internal/secretstream"
	"github.com/zydiig/secrets-go/internal/volume"
)

// ErrFraming is returned when a chunk appears where only a Header or End
// chunk is valid.
var ErrFraming = errors.New("archive: unexpected chunk kind at object boundary")

// Reader drives the Init -> Streaming -> AtManifest -> Done state machine
// of an archive being read back. Not safe for concurrent use.
//
// Once NextObject returns an error, the Reader is poisoned: every later
// call returns that same error instead of reading further chunks, since
// the underlying chunk stream's position is no longer trustworthy once one
// read has failed.
type Reader struct {
	cr       *chunk.Reader
	closer   io.Closer
	manifest *object.Manifest
	cur      *object.Reader
	err      error
}

// poison records err as the Reader's terminal failure, if it isn't already
// poisoned, and returns it.
func (r *Reader) poison(err error) error {
	if err != nil && r.err == nil {
		r.err = err
	}
	return err
}

// OpenReader parses the format header from source, derives the session key
// from password, and opens the chunk stream. rotator, if non-nil, is used
// to follow VolumeEnd markers to subsequent volumes; source must be
// rotator itself when rotator is non-nil.
func OpenReader(source io.Reader, rotator volume.ReadRotator, closer io.Closer, password []byte) (*Reader, error) {
	h, err := parseFormatHeader(source)
	if err != nil {
		return nil, err
	}
	params := kdf.Params{Opslimit: h.opslimit, Memlimit: h.memlimit}
	key, err := kdf.Derive(password, h.salt[:], params)
	if err != nil {
		return nil, err
	}
	fr, err := framestream.NewReaderWithHeader(source, key, h.streamHeader[:])
	if err != nil {
		return nil, err
	}
	cr := chunk.NewReader(fr, rotator)
	return &Reader{cr: cr, closer: closer}, nil
}

// ErrAuth re-exports secretstream's authentication failure for callers that
// want to distinguish it from other archive errors.
var ErrAuth = secretstream.ErrAuth

// NextObject advances to the next object in the archive. It returns
// (nil, nil, nil) once the manifest has been read and Manifest is populated. The
// returned *object.Reader must be fully drained (or Closed) before the next
// call to NextObject.
func (r *Reader) NextObject() (*object.Reader, *object.Header, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	if r.cur != nil {
		r.cur.Close()
		r.cur = nil
	}
	if r.manifest != nil {
		return nil, nil, nil
	}

	kind, payload, err := r.cr.ReadChunk()
	if err != nil {
		return nil, nil, r.poison(err)
	}
	switch kind {
	case chunk.End:
		var m object.Manifest
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, nil, r.poison(err)
		}
		r.manifest = &m
		return nil, nil, nil
	case chunk.Header:
		var hdr object.Header
		if err := json.Unmarshal(payload, &hdr); err != nil {
			return nil, nil, r.poison(err)
		}
		if hdr.ObjectType == object.TypeDirectory {
			return nil, &hdr, nil
		}
		or, err := object.NewReader(r.cr)
		if err != nil {
			return nil, nil, r.poison(err)
		}
		r.cur = or
		return or, &hdr, nil
	default:
		return nil, nil, r.poison(ErrFraming)
	}
}

// Manifest returns the archive's manifest once NextObject has reached the
// End chunk, and nil before that.
func (r *Reader) Manifest() *object.Manifest {
	return r.manifest
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	if r.cur != nil {
		r.cur.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
