package chunk_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/zydiig/secrets-go/internal/chunk"
	"github.com/zydiig/secrets-go/internal/framestream"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestRoundTripSingleVolume(t *testing.T) {
	key := randomKey(t)
	var buf bytes.Buffer

	fw, err := framestream.NewWriter(&buf, key)
	if err != nil {
		t.Fatal(err)
	}
	w := chunk.NewWriter(fw, nil, 0)
	if err := w.WriteChunk(chunk.Header, []byte("header")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(chunk.Data, []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(chunk.End, []byte("end")); err != nil {
		t.Fatal(err)
	}

	fr, err := framestream.NewReader(&buf, key)
	if err != nil {
		t.Fatal(err)
	}
	r := chunk.NewReader(fr, nil)
	want := []struct {
		kind    chunk.Kind
		payload string
	}{
		{chunk.Header, "header"},
		{chunk.Data, "data"},
		{chunk.End, "end"},
	}
	for i, w := range want {
		kind, payload, err := r.ReadChunk()
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if kind != w.kind || string(payload) != w.payload {
			t.Fatalf("chunk %d: got (%v,%q), want (%v,%q)", i, kind, payload, w.kind, w.payload)
		}
	}
}

// memWriteRotator and memReadRotator are an in-memory volume.WriteRotator/
// ReadRotator pair for
// exercising rotation without touching the filesystem.
type memWriteRotator struct {
	volumes []*bytes.Buffer
	cur     *bytes.Buffer
}

func newMemWriteRotator() *memWriteRotator {
	buf := &bytes.Buffer{}
	return &memWriteRotator{volumes: []*bytes.Buffer{buf}, cur: buf}
}

func (m *memWriteRotator) Write(p []byte) (int, error) { return m.cur.Write(p) }
func (m *memWriteRotator) BytesWritten() int64         { return int64(m.cur.Len()) }
func (m *memWriteRotator) Rotate() error {
	buf := &bytes.Buffer{}
	m.volumes = append(m.volumes, buf)
	m.cur = buf
	return nil
}

type memReadRotator struct {
	volumes []io.Reader
	idx     int
}

func (m *memReadRotator) Read(p []byte) (int, error) { return m.volumes[m.idx].Read(p) }
func (m *memReadRotator) Rotate() error {
	m.idx++
	if m.idx >= len(m.volumes) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func TestVolumeRotationIsTransparent(t *testing.T) {
	key := randomKey(t)
	mw := newMemWriteRotator()

	fw, err := framestream.NewWriter(mw, key)
	if err != nil {
		t.Fatal(err)
	}
	// A tiny volume size forces a rotation before every chunk.
	w := chunk.NewWriter(fw, mw, 64)
	if err := w.WriteChunk(chunk.Header, bytes.Repeat([]byte{1}, 40)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(chunk.Data, bytes.Repeat([]byte{2}, 40)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteChunk(chunk.End, nil); err != nil {
		t.Fatal(err)
	}

	if len(mw.volumes) < 2 {
		t.Fatalf("expected rotation to produce at least 2 volumes, got %d", len(mw.volumes))
	}

	readers := make([]io.Reader, len(mw.volumes))
	for i, v := range mw.volumes {
		readers[i] = bytes.NewReader(v.Bytes())
	}
	mr := &memReadRotator{volumes: readers}

	fr, err := framestream.NewReader(mr, key)
	if err != nil {
		t.Fatal(err)
	}
	r := chunk.NewReader(fr, mr)

	kind, payload, err := r.ReadChunk()
	if err != nil {
		t.Fatal(err)
	}
	if kind != chunk.Header || len(payload) != 40 {
		t.Fatalf("got (%v, %d bytes), want (Header, 40 bytes)", kind, len(payload))
	}
	kind, payload, err = r.ReadChunk()
	if err != nil {
		t.Fatal(err)
	}
	if kind != chunk.Data || len(payload) != 40 {
		t.Fatalf("got (%v, %d bytes), want (Data, 40 bytes)", kind, len(payload))
	}
	kind, _, err = r.ReadChunk()
	if err != nil {
		t.Fatal(err)
	}
	if kind != chunk.End {
		t.Fatalf("got %v, want End", kind)
	}
}

func TestUnexpectedVolumeEndWithNoRotator(t *testing.T) {
	key := randomKey(t)
	var buf bytes.Buffer

	fw, err := framestream.NewWriter(&buf, key)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.WriteFrame(byte(chunk.VolumeEnd), nil); err != nil {
		t.Fatal(err)
	}

	fr, err := framestream.NewReader(&buf, key)
	if err != nil {
		t.Fatal(err)
	}
	r := chunk.NewReader(fr, nil)
	if _, _, err := r.ReadChunk(); err != chunk.ErrUnexpectedVolumeEnd {
		t.Fatalf("got %v, want ErrUnexpectedVolumeEnd", err)
	}
}
