package hashsum_test

import (
	"testing"

	"github.com/zydiig/secrets-go/internal/hashsum"
)

func TestHexSumLength(t *testing.T) {
	h := hashsum.New()
	h.Write([]byte("hello"))
	sum := hashsum.HexSum(h.Sum(nil))
	if len(sum) != hashsum.Size*2 {
		t.Fatalf("len(sum) = %d, want %d", len(sum), hashsum.Size*2)
	}
}

func TestHexSumDeterministic(t *testing.T) {
	h1 := hashsum.New()
	h1.Write([]byte("hello"))
	h2 := hashsum.New()
	h2.Write([]byte("hello"))
	if hashsum.HexSum(h1.Sum(nil)) != hashsum.HexSum(h2.Sum(nil)) {
		t.Fatal("hash of identical input differs")
	}
}
