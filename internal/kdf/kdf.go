// Package kdf derives archive session keys from a user password using
// Argon2id, the memory-hard function golang.org/x/crypto/argon2 provides as
// the nearest Go-ecosystem analogue of libsodium's crypto_pwhash.
package kdf

import (
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the size of the random salt stored in the archive header.
const SaltSize = 16

// KeySize is the size of the derived session key.
const KeySize = 32

const threads = 4

// Params records the cost parameters that went into a derivation, so a
// reader can reproduce the exact key from the header-stored values.
type Params struct {
	// Opslimit is Argon2id's time cost (number of iterations).
	Opslimit uint64
	// Memlimit is the memory cost, in bytes.
	Memlimit uint64
}

// Default is a conservative cost for interactive use: opslimit=3,
// memlimit=1 GiB.
var Default = Params{Opslimit: 3, Memlimit: 1 << 30}

// ErrInvalidParams is returned when Opslimit or Memlimit can't be mapped to
// valid Argon2id cost parameters (e.g. read back from a corrupt header).
var ErrInvalidParams = errors.New("kdf: invalid opslimit/memlimit")

// Derive computes the Argon2id key for password, salt, and params.
func Derive(password, salt []byte, params Params) ([]byte, error) {
	if params.Opslimit == 0 || params.Opslimit > 1<<20 {
		return nil, ErrInvalidParams
	}
	memoryKiB := params.Memlimit / 1024
	if memoryKiB == 0 || memoryKiB > 1<<32-1 {
		return nil, ErrInvalidParams
	}
	if len(salt) != SaltSize {
		return nil, ErrInvalidParams
	}
	key := argon2.IDKey(password, salt, uint32(params.Opslimit), uint32(memoryKiB), threads, KeySize)
	return key, nil
}
