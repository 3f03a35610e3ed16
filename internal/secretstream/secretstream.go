// Package secretstream implements a streaming AEAD construction: a sequence
// of independently authenticated messages chained under a single session
// key, in the shape of libsodium's crypto_secretstream_xchacha20poly1305 but
// built from golang.org/x/crypto/chacha20poly1305's XChaCha20-Poly1305.
//
// Unlike a bare AEAD, callers never choose a nonce: push derives the next
// nonce from an internal counter, and pull enforces that counter on read,
// so reordering, dropping, or replaying ciphertexts fails authentication.
package secretstream

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// HeaderSize is the size of the public header exchanged out of band (it is
// not secret, but must reach the pull side unmodified).
const HeaderSize = 24

// Overhead is the per-message authentication tag size.
const Overhead = chacha20poly1305.Overhead

// NewHeader generates a fresh random public header for a push stream.
func NewHeader() ([]byte, error) {
	h := make([]byte, HeaderSize)
	if _, err := rand.Read(h); err != nil {
		return nil, err
	}
	return h, nil
}

// state holds the derived AEAD key, the running nonce, and the message
// counter shared by Pusher and Puller.
type state struct {
	aead      cipher.AEAD
	baseNonce [chacha20poly1305.NonceSizeX]byte
	counter   uint64
}

func deriveState(key, header []byte) (*state, error) {
	if len(header) != HeaderSize {
		return nil, errors.New("secretstream: invalid header size")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	h := hkdf.New(sha256.New, key, header, []byte("secretstream-nonce"))
	s := &state{aead: aead}
	if _, err := io.ReadFull(h, s.baseNonce[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// nonceForCounter XORs the running message counter into the low 8 bytes of
// the base nonce, the way internal/stream.incNonce walks a big-endian
// counter embedded in the nonce.
func (s *state) nonceForCounter(counter uint64) [chacha20poly1305.NonceSizeX]byte {
	nonce := s.baseNonce
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	for i := range ctr {
		nonce[len(nonce)-8+i] ^= ctr[i]
	}
	return nonce
}

// Pusher pushes successive plaintexts into authenticated ciphertexts. Not
// safe for concurrent use.
type Pusher struct {
	s *state
}

// NewPusher derives push-side state from a session key and publishes a
// fresh header through header.
func NewPusher(key []byte) (p *Pusher, header []byte, err error) {
	header, err = NewHeader()
	if err != nil {
		return nil, nil, err
	}
	s, err := deriveState(key, header)
	if err != nil {
		return nil, nil, err
	}
	return &Pusher{s: s}, header, nil
}

// NewPusherWithHeader derives push-side state from a session key and a
// caller-supplied header, for callers that embed the header in a larger
// structure (such as an archive's format header) instead of letting the
// push side publish it on its own.
func NewPusherWithHeader(key, header []byte) (*Pusher, error) {
	s, err := deriveState(key, header)
	if err != nil {
		return nil, err
	}
	return &Pusher{s: s}, nil
}

// Push authenticates and encrypts plaintext with optional associated data,
// advancing the stream by one message.
func (p *Pusher) Push(plaintext, ad []byte) []byte {
	nonce := p.s.nonceForCounter(p.s.counter)
	p.s.counter++
	return p.s.aead.Seal(nil, nonce[:], plaintext, ad)
}

// Puller authenticates and decrypts a stream of ciphertexts produced by a
// matching Pusher. Any out-of-order or tampered ciphertext is rejected and
// the Puller should not be reused afterwards: once Pull fails, it is
// poisoned and every subsequent call returns the same error without
// attempting to open anything, even a ciphertext that would otherwise
// authenticate correctly at the current counter.
type Puller struct {
	s   *state
	err error
}

// NewPuller derives pull-side state from a session key and the header
// published by the matching Pusher.
func NewPuller(key, header []byte) (*Puller, error) {
	s, err := deriveState(key, header)
	if err != nil {
		return nil, err
	}
	return &Puller{s: s}, nil
}

// ErrAuth is returned when a ciphertext fails authentication, including
// ciphertexts that are well-formed but out of the expected order.
var ErrAuth = errors.New("secretstream: authentication failed")

// Pull decrypts and authenticates ciphertext with optional associated data,
// advancing the stream by one message on success. Once Pull has failed
// once, it keeps returning that failure on every later call.
func (p *Puller) Pull(ciphertext, ad []byte) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	nonce := p.s.nonceForCounter(p.s.counter)
	plaintext, err := p.s.aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		p.err = ErrAuth
		return nil, p.err
	}
	p.s.counter++
	return plaintext, nil
}
