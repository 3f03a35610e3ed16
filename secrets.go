// Package secrets implements a password-based, compressed, authenticated,
// optionally volume-split streaming archive format: a thin public facade
// over internal/archive.
package secrets

import (
	"encoding/hex"
	"hash"
	"io"

	"github.com/zydiig/secrets-go/internal/archive"
	"github.com/zydiig/secrets-go/internal/hashsum"
	"github.com/zydiig/secrets-go/internal/kdf"
	"github.com/zydiig/secrets-go/internal/object"
	"github.com/zydiig/secrets-go/internal/volume"
)

// Re-exported object types, so callers never need to import internal
// packages to consume a Manifest.
type (
	ObjectType = object.Type
	Header     = object.Header
	Epilogue   = object.Epilogue
	Descriptor = object.Descriptor
	Manifest   = object.Manifest
)

const (
	TypeFile      = object.TypeFile
	TypeDirectory = object.TypeDirectory
)

// Params are the KDF cost parameters persisted in the archive header.
// DefaultParams is a conservative interactive cost: opslimit=3,
// memlimit=1 GiB.
type Params = kdf.Params

var DefaultParams = kdf.Default

// Writer writes a single archive to an underlying sink, optionally split
// across multiple volume files. Not safe for concurrent use.
type Writer struct {
	inner *archive.Writer
}

// NewWriter opens an archive for writing to sink with the given password
// and KDF parameters. Compression level follows zstd's own scale
// (-5..22). volumeSize, if positive, splits the archive into files of
// approximately that size; rotator must be supplied in that case and must
// already be positioned at volume 1 (see volume.NewFileWriter).
func NewWriter(sink io.Writer, rotator volume.WriteRotator, closer io.Closer, password []byte, params Params, volumeSize int64) (*Writer, error) {
	w, err := archive.OpenWriter(sink, rotator, closer, password, params, volumeSize)
	if err != nil {
		return nil, classify(err)
	}
	return &Writer{inner: w}, nil
}

// WriteObject writes one object's Header, and for files its content from
// src followed by its Epilogue, at the given compression level.
func (w *Writer) WriteObject(h Header, src io.Reader, level int) error {
	return classify(w.inner.WriteObject(h, src, level))
}

// AddPath recursively writes root (and, if root is a directory, everything
// beneath it) as archive objects, in filepath.WalkDir order.
func (w *Writer) AddPath(root string, level int) error {
	return classify(w.inner.AddPath(root, level))
}

// End finalizes the archive by writing its manifest. Idempotent.
func (w *Writer) End() error {
	return classify(w.inner.End())
}

// Close is an alias for End.
func (w *Writer) Close() error {
	return classify(w.inner.Close())
}

// ObjectReader streams one file object's decompressed plaintext.
type ObjectReader struct {
	inner *object.Reader
	hash  hash.Hash
}

// Read implements io.Reader. Once Read returns io.EOF, call Verify to check
// the object's content hash against its epilogue.
func (r *ObjectReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.hash.Write(p[:n])
	}
	return n, classify(err)
}

// Epilogue returns the object's trailer once Read has reached io.EOF.
func (r *ObjectReader) Epilogue() *Epilogue {
	return r.inner.Epilogue()
}

// Verify compares the hash accumulated over everything Read returned
// against the epilogue's recorded hash, returning ErrIntegrity on
// mismatch. Call only after Read has returned io.EOF.
func (r *ObjectReader) Verify() error {
	ep := r.inner.Epilogue()
	if ep == nil {
		return ErrFraming
	}
	got := hex.EncodeToString(r.hash.Sum(nil))
	if got != ep.Hash {
		return ErrIntegrity
	}
	return nil
}

// Close releases resources without requiring the caller to read to EOF.
func (r *ObjectReader) Close() error {
	return classify(r.inner.Close())
}

// Reader reads a single archive back, verifying every frame's
// authentication as it goes.
type Reader struct {
	inner *archive.Reader
}

// NewReader opens an archive for reading from source with the given
// password. rotator, if non-nil, follows VolumeEnd markers across volume
// files; source must be rotator itself in that case.
func NewReader(source io.Reader, rotator volume.ReadRotator, closer io.Closer, password []byte) (*Reader, error) {
	r, err := archive.OpenReader(source, rotator, closer, password)
	if err != nil {
		return nil, classify(err)
	}
	return &Reader{inner: r}, nil
}

// NextObject advances to the next object in the archive, returning
// (nil, nil, nil) once the manifest has been read (Manifest then returns
// it). For directories, the returned *ObjectReader is nil; callers should
// not call Read on it.
func (r *Reader) NextObject() (*ObjectReader, *Header, error) {
	or, hdr, err := r.inner.NextObject()
	if err != nil {
		return nil, nil, classify(err)
	}
	if or == nil {
		return nil, hdr, nil
	}
	return &ObjectReader{inner: or, hash: hashsum.New()}, hdr, nil
}

// Manifest returns the archive's manifest once NextObject has reached the
// End chunk, and nil before that.
func (r *Reader) Manifest() *Manifest {
	return r.inner.Manifest()
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	return classify(r.inner.Close())
}
