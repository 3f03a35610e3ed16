package volume_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zydiig/secrets-go/internal/volume"
)

func TestShouldRotate(t *testing.T) {
	if volume.ShouldRotate(0, 100, 0) {
		t.Fatal("ShouldRotate with volumeSize=0 must never rotate")
	}
	const size = 1 << 20
	if volume.ShouldRotate(0, 100, size) {
		t.Fatal("ShouldRotate rotated on an almost-empty volume")
	}
	if !volume.ShouldRotate(size-volume.SafetyMargin, 100, size) {
		t.Fatal("ShouldRotate failed to rotate once past the safety margin")
	}
}

func TestFileWriterRotation(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "archive.sec")

	fw, err := volume.NewFileWriter(volume.FirstVolumePath(base))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("volume one")); err != nil {
		t.Fatal(err)
	}
	if fw.BytesWritten() != int64(len("volume one")) {
		t.Fatalf("BytesWritten() = %d, want %d", fw.BytesWritten(), len("volume one"))
	}
	if err := fw.Rotate(); err != nil {
		t.Fatal(err)
	}
	if fw.BytesWritten() != 0 {
		t.Fatalf("BytesWritten() after Rotate = %d, want 0", fw.BytesWritten())
	}
	if _, err := fw.Write([]byte("volume two")); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}

	b1, err := os.ReadFile(base + ".001")
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != "volume one" {
		t.Fatalf("volume 1 content = %q", b1)
	}
	b2, err := os.ReadFile(base + ".002")
	if err != nil {
		t.Fatal(err)
	}
	if string(b2) != "volume two" {
		t.Fatalf("volume 2 content = %q", b2)
	}
}

func TestFileReaderRotation(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "archive.sec")
	if err := os.WriteFile(base+".001", []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(base+".002", []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}

	fr, err := volume.NewFileReader(base + ".001")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := fr.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "first" {
		t.Fatalf("read %q, want %q", buf, "first")
	}
	if err := fr.Rotate(); err != nil {
		t.Fatal(err)
	}
	buf = make([]byte, 6)
	if _, err := fr.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "second" {
		t.Fatalf("read %q, want %q", buf, "second")
	}
}

func TestFileReaderRotateMissingVolume(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "archive.sec")
	if err := os.WriteFile(base+".001", []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	fr, err := volume.NewFileReader(base + ".001")
	if err != nil {
		t.Fatal(err)
	}
	var missing *volume.ErrVolumeMissing
	err = fr.Rotate()
	if err == nil {
		t.Fatal("expected an error rotating to a missing volume")
	}
	if !errors.As(err, &missing) {
		t.Fatalf("got %v (%T), want *ErrVolumeMissing", err, err)
	}
}
