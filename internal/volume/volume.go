// Package volume implements the archive's multi-file split/join mechanism:
// rotating the byte sink at a configured size boundary on write, and
// following the .NNN naming convention to open successive files on read.
package volume

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
)

// VolumeEndAllowance and SafetyMargin are the bookkeeping constants for
// volume rotation: a budget for the VolumeEnd chunk that will follow, and
// a safety margin against estimation error in the projected frame size.
const (
	VolumeEndAllowance = 1024
	SafetyMargin       = 4096
)

// ShouldRotate reports whether a pending frame of projected size should be
// preceded by a VolumeEnd and a rotation to the next volume file, given the
// byte count already written to the current volume and the configured
// volume size. A non-positive volumeSize disables rotation entirely.
func ShouldRotate(bytesWritten, projected, volumeSize int64) bool {
	if volumeSize <= 0 {
		return false
	}
	return bytesWritten+projected+VolumeEndAllowance > volumeSize-SafetyMargin
}

// suffixPattern matches the three-digit, zero-padded volume suffix.
var suffixPattern = regexp.MustCompile(`\.(\d{3})$`)

// FirstVolumePath returns the name of volume 1 for the given base path.
func FirstVolumePath(basePath string) string {
	return fmt.Sprintf("%s.001", basePath)
}

// ErrNotVolumeNamed is returned when a path doesn't end in a .NNN suffix
// and therefore has no well-defined next volume.
var ErrNotVolumeNamed = errors.New("volume: path does not end in a .NNN volume suffix")

func nextVolumePath(path string) (string, error) {
	loc := suffixPattern.FindStringSubmatchIndex(path)
	if loc == nil {
		return "", ErrNotVolumeNamed
	}
	n, err := strconv.Atoi(path[loc[2]:loc[3]])
	if err != nil {
		return "", ErrNotVolumeNamed
	}
	return fmt.Sprintf("%s.%03d", path[:loc[0]], n+1), nil
}

// WriteRotator is the byte sink the chunk writer targets when volume
// splitting is enabled: a single long-lived io.Writer whose Rotate method
// swaps the file underneath it.
type WriteRotator interface {
	io.Writer
	BytesWritten() int64
	Rotate() error
}

// FileWriter is a WriteRotator backed by a sequence of numbered files on
// disk, named basePath.001, basePath.002, and so on.
type FileWriter struct {
	basePath string
	counter  int
	cur      *os.File
	written  int64
}

// NewFileWriter creates volume 1 at exactly path. Rotate names the later
// volumes by replacing path's .NNN suffix with .002, .003, and so on; if
// path has no .NNN suffix, the suffix is appended to path instead.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{basePath: trimSuffix(path), counter: 1, cur: f}, nil
}

func trimSuffix(path string) string {
	loc := suffixPattern.FindStringIndex(path)
	if loc == nil {
		return path
	}
	return path[:loc[0]]
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	n, err := fw.cur.Write(p)
	fw.written += int64(n)
	return n, err
}

// BytesWritten returns the number of bytes written to the current volume.
func (fw *FileWriter) BytesWritten() int64 { return fw.written }

// Rotate closes the current volume and opens the next one.
func (fw *FileWriter) Rotate() error {
	if err := fw.cur.Close(); err != nil {
		return err
	}
	fw.counter++
	path := fmt.Sprintf("%s.%03d", fw.basePath, fw.counter)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	fw.cur = f
	fw.written = 0
	return nil
}

// Close closes the currently open volume file.
func (fw *FileWriter) Close() error {
	return fw.cur.Close()
}

// ReadRotator is the byte source the chunk reader targets when a VolumeEnd
// chunk is decoded: a single long-lived io.Reader whose Rotate method
// swaps the file underneath it to the next volume.
type ReadRotator interface {
	io.Reader
	Rotate() error
}

// FileReader is a ReadRotator backed by numbered files on disk, discovered
// by substring replacement of the .NNN suffix.
type FileReader struct {
	path string
	cur  *os.File
}

// NewFileReader opens the volume at path, which must end in a .NNN suffix
// if the archive spans more than one volume.
func NewFileReader(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileReader{path: path, cur: f}, nil
}

func (fr *FileReader) Read(p []byte) (int, error) {
	return fr.cur.Read(p)
}

// ErrVolumeMissing is returned when the next volume file can't be opened.
type ErrVolumeMissing struct {
	Path string
	Err  error
}

func (e *ErrVolumeMissing) Error() string {
	return fmt.Sprintf("volume: missing volume %q: %v", e.Path, e.Err)
}

func (e *ErrVolumeMissing) Unwrap() error { return e.Err }

// Rotate closes the current volume and opens the next one, named by
// incrementing the current volume's .NNN suffix.
func (fr *FileReader) Rotate() error {
	next, err := nextVolumePath(fr.path)
	if err != nil {
		return err
	}
	if err := fr.cur.Close(); err != nil {
		return err
	}
	f, err := os.Open(next)
	if err != nil {
		return &ErrVolumeMissing{Path: next, Err: err}
	}
	fr.path = next
	fr.cur = f
	return nil
}

// Close closes the currently open volume file.
func (fr *FileReader) Close() error {
	return fr.cur.Close()
}
