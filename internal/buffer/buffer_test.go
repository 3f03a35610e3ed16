package buffer_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/zydiig/secrets-go/internal/buffer"
)

func TestPutDrainRoundTrip(t *testing.T) {
	var b buffer.Buffer
	var want bytes.Buffer

	r := rand.New(rand.NewSource(1))
	var got bytes.Buffer
	for i := 0; i < 200; i++ {
		chunk := make([]byte, r.Intn(37))
		r.Read(chunk)
		b.Put(chunk)
		want.Write(chunk)

		out := make([]byte, r.Intn(19))
		n := b.DrainInto(out)
		got.Write(out[:n])
	}
	out := make([]byte, b.Len())
	b.DrainInto(out)
	got.Write(out)

	if !bytes.Equal(got.Bytes(), want.Bytes()) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", got.Len(), want.Len())
	}
}

func TestDrainIntoEmpty(t *testing.T) {
	var b buffer.Buffer
	out := make([]byte, 10)
	if n := b.DrainInto(out); n != 0 {
		t.Fatalf("DrainInto on empty buffer returned %d, want 0", n)
	}
}

func TestLenAfterFullDrain(t *testing.T) {
	var b buffer.Buffer
	b.Put([]byte("hello"))
	out := make([]byte, 5)
	b.DrainInto(out)
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
}
