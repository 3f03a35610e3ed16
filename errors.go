package secrets

import (
	"errors"
	"fmt"

	"github.com/zydiig/secrets-go/internal/archive"
	"github.com/zydiig/secrets-go/internal/chunk"
	"github.com/zydiig/secrets-go/internal/codec"
	"github.com/zydiig/secrets-go/internal/framestream"
	"github.com/zydiig/secrets-go/internal/kdf"
	"github.com/zydiig/secrets-go/internal/object"
	"github.com/zydiig/secrets-go/internal/secretstream"
	"github.com/zydiig/secrets-go/internal/volume"
)

// The error kinds below classify every failure an archive.Writer or
// archive.Reader can produce. Use errors.Is against one of these to
// distinguish categories without depending on internal package types.
var (
	// ErrAuth means an AEAD frame failed authentication. Fatal and
	// unrecoverable for the stream it occurred on.
	ErrAuth = errors.New("secrets: authentication failed")
	// ErrFraming means a chunk arrived in an invalid position, such as an
	// Epilogue chunk with no preceding file Header. Fatal.
	ErrFraming = errors.New("secrets: unexpected chunk in object stream")
	// ErrFormat means the archive's format header was unreadable or had
	// out-of-range fields. Fatal at open.
	ErrFormat = errors.New("secrets: malformed archive header")
	// ErrKdf means password-based key derivation was given invalid cost
	// parameters.
	ErrKdf = errors.New("secrets: invalid key derivation parameters")
	// ErrIntegrity means a decompressed object's recomputed hash did not
	// match its epilogue. Reported per object, not fatal for the archive.
	ErrIntegrity = errors.New("secrets: content hash does not match epilogue")
	// ErrCompression means the codec reported an internal failure. Fatal
	// for the object being read or written.
	ErrCompression = errors.New("secrets: compression codec failure")
	// ErrTruncation means the source ended before an expected number of
	// bytes was read. Fatal.
	ErrTruncation = errors.New("secrets: truncated archive stream")
	// ErrVolume means a required next volume was missing or misnamed, or a
	// VolumeEnd chunk appeared where no volume rotation was configured.
	// Fatal.
	ErrVolume = errors.New("secrets: volume error")
)

// classify wraps an internal-package error in the matching exported kind
// above, via fmt.Errorf's %w so errors.Is(err, ErrX) and errors.Unwrap both
// work against the original cause. Errors not recognized as belonging to
// one of these kinds (e.g. plain I/O errors from the underlying sink or
// source) are returned unchanged; callers should treat those as ordinary
// I/O failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, secretstream.ErrAuth), errors.Is(err, archive.ErrAuth):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case errors.Is(err, framestream.ErrTruncated):
		return fmt.Errorf("%w: %v", ErrTruncation, err)
	case errors.Is(err, chunk.ErrUnexpectedVolumeEnd):
		return fmt.Errorf("%w: %v", ErrVolume, err)
	case errors.Is(err, archive.ErrFraming), errors.Is(err, object.ErrFraming),
		errors.Is(err, framestream.ErrFramingTooLarge):
		return fmt.Errorf("%w: %v", ErrFraming, err)
	case errors.Is(err, kdf.ErrInvalidParams):
		return fmt.Errorf("%w: %v", ErrKdf, err)
	case errors.Is(err, codec.ErrCodec):
		return fmt.Errorf("%w: %v", ErrCompression, err)
	default:
		var parseErr archive.ParseError
		if errors.As(err, &parseErr) {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
		var volMissing *volume.ErrVolumeMissing
		if errors.As(err, &volMissing) {
			return fmt.Errorf("%w: %v", ErrVolume, err)
		}
		if errors.Is(err, volume.ErrNotVolumeNamed) {
			return fmt.Errorf("%w: %v", ErrVolume, err)
		}
		return err
	}
}
