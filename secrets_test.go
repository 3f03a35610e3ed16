package secrets_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/zydiig/secrets-go"
)

func cheapParams() secrets.Params {
	return secrets.Params{Opslimit: 1, Memlimit: 8 << 10}
}

func TestFacadeRoundTripWithVerify(t *testing.T) {
	var buf bytes.Buffer
	w, err := secrets.NewWriter(&buf, nil, nil, []byte("correct horse"), cheapParams(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteObject(secrets.Header{
		ObjectType: secrets.TypeFile,
		Name:       "note.txt",
	}, bytes.NewReader([]byte("battery staple")), 3); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}

	r, err := secrets.NewReader(bytes.NewReader(buf.Bytes()), nil, nil, []byte("correct horse"))
	if err != nil {
		t.Fatal(err)
	}
	or, hdr, err := r.NextObject()
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Name != "note.txt" {
		t.Fatalf("name = %q", hdr.Name)
	}
	got, err := io.ReadAll(or)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "battery staple" {
		t.Fatalf("content = %q", got)
	}
	if err := or.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	or, hdr, err = r.NextObject()
	if err != nil || or != nil || hdr != nil {
		t.Fatalf("expected clean end, got (%v, %v, %v)", or, hdr, err)
	}
	if len(r.Manifest().Objects) != 1 {
		t.Fatalf("manifest has %d objects, want 1", len(r.Manifest().Objects))
	}
}

func TestFacadeWrongPasswordYieldsAuthError(t *testing.T) {
	var buf bytes.Buffer
	w, err := secrets.NewWriter(&buf, nil, nil, []byte("right"), cheapParams(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteObject(secrets.Header{ObjectType: secrets.TypeFile, Name: "f"}, bytes.NewReader([]byte("x")), 3); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}

	r, err := secrets.NewReader(bytes.NewReader(buf.Bytes()), nil, nil, []byte("wrong"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.NextObject(); !errors.Is(err, secrets.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}
