package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a fixed 256-bit hash used to key cached per-unit artifacts.
type Digest [32]byte

// HashBytes digests raw content, typically an encoded unit snapshot.
func HashBytes(content []byte) Digest {
	return sha256.Sum256(content)
}

// Combine builds an aggregate hash: H( base || extra1 || extra2 ... ).
// Callers must pass extras in a deterministic order.
func Combine(base Digest, extras ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(base[:])
	for _, d := range extras {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest was never set.
func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}
