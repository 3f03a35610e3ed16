package archive

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zydiig/secrets-go/internal/chunk"
	"github.com/zydiig/secrets-go/internal/framestream"
	"github.com/zydiig/secrets-go/internal/kdf"
	"github.com/zydiig/secrets-go/internal/object"
	"github.com/zydiig/secrets-go/internal/secretstream"
	"github.com/zydiig/secrets-go/internal/volume"
)

// ErrUnsupportedObjectType is returned by AddPath when a directory entry is
// neither a regular file nor a directory (a symlink, device, socket, etc).
var ErrUnsupportedObjectType = errors.New("archive: unsupported object type")

// Writer drives the Init -> Open -> Closed state machine of an archive
// under construction. Not safe for concurrent use.
//
// Once any call returns an error, the Writer is poisoned: every later call,
// including End, returns that same error without writing anything further.
// This keeps a failure partway through an object (for example src.Read
// failing after some of its Data chunks are already on the wire) from
// silently producing a structurally corrupt archive whose partial object
// has no Epilogue.
type Writer struct {
	cw       *chunk.Writer
	closer   io.Closer
	manifest object.Manifest
	ended    bool
	err      error
}

// poison records err as the Writer's terminal failure, if it isn't already
// poisoned, and returns it.
func (w *Writer) poison(err error) error {
	if err != nil && w.err == nil {
		w.err = err
	}
	return err
}

// OpenWriter derives a session key from password with params, writes the
// format header and the secretstream public header to sink, and returns a
// ready Writer. If rotator is non-nil and volumeSize is positive, the
// archive spans multiple volumes; rotator must already be positioned at
// volume 001. closer, if non-nil, is closed by End.
func OpenWriter(sink io.Writer, rotator volume.WriteRotator, closer io.Closer, password []byte, params kdf.Params, volumeSize int64) (*Writer, error) {
	var salt [kdf.SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := kdf.Derive(password, salt[:], params)
	if err != nil {
		return nil, err
	}

	streamHeader, err := secretstream.NewHeader()
	if err != nil {
		return nil, err
	}

	h := &formatHeader{salt: salt, opslimit: params.Opslimit, memlimit: params.Memlimit}
	copy(h.streamHeader[:], streamHeader)
	if _, err := sink.Write(h.marshal()); err != nil {
		return nil, err
	}

	fw, err := framestream.NewWriterWithHeader(sink, key, streamHeader)
	if err != nil {
		return nil, err
	}
	cw := chunk.NewWriter(fw, rotator, volumeSize)
	return &Writer{cw: cw, closer: closer}, nil
}

// WriteObject writes one object's Header chunk, and for files, its content
// via object.WriteFile followed by its Epilogue chunk. desc describes the
// object; src supplies file contents and is ignored for directories.
func (w *Writer) WriteObject(desc object.Header, src io.Reader, level int) error {
	if w.err != nil {
		return w.err
	}
	hdr, err := json.Marshal(desc)
	if err != nil {
		return w.poison(err)
	}
	if err := w.cw.WriteChunk(chunk.Header, hdr); err != nil {
		return w.poison(err)
	}
	if desc.ObjectType == object.TypeDirectory {
		w.manifest.Objects = append(w.manifest.Objects, object.Descriptor{Header: desc})
		return nil
	}
	epilogue, err := object.WriteFile(w.cw, src, level)
	if err != nil {
		return w.poison(err)
	}
	ep, err := json.Marshal(epilogue)
	if err != nil {
		return w.poison(err)
	}
	if err := w.cw.WriteChunk(chunk.Epilogue, ep); err != nil {
		return w.poison(err)
	}
	w.manifest.Objects = append(w.manifest.Objects, object.Descriptor{Header: desc, Epilogue: epilogue})
	return nil
}

// AddPath walks root, writing one object per entry (root itself included)
// in the order filepath.WalkDir visits them. Each object's Path components
// are derived from the entry's path relative to root's parent, so restoring
// at root's original location reproduces the tree.
func (w *Writer) AddPath(root string, level int) error {
	if w.err != nil {
		return w.err
	}
	parent := filepath.Dir(root)
	return w.poison(filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		components := pathComponents(rel)

		switch {
		case d.IsDir():
			return w.WriteObject(object.Header{
				ObjectType:   object.TypeDirectory,
				Name:         d.Name(),
				OriginalPath: path,
				Path:         components,
			}, nil, level)
		case d.Type().IsRegular():
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return w.WriteObject(object.Header{
				ObjectType:   object.TypeFile,
				Name:         d.Name(),
				OriginalPath: path,
				Path:         components,
			}, f, level)
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedObjectType, path)
		}
	}))
}

func pathComponents(rel string) []string {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}

// End writes the manifest as an End chunk and closes the underlying sink.
// Idempotent: a second call is a no-op.
func (w *Writer) End() error {
	if w.err != nil {
		return w.err
	}
	if w.ended {
		return nil
	}
	w.ended = true
	payload, err := json.Marshal(w.manifest)
	if err != nil {
		return w.poison(err)
	}
	if err := w.cw.WriteChunk(chunk.End, payload); err != nil {
		return w.poison(err)
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return w.poison(err)
		}
	}
	return nil
}

// Close finalizes the archive via End.
func (w *Writer) Close() error {
	return w.End()
}
