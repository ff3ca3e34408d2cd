package project

import (
	"crypto/sha256"
)

// Digest is a SHA-256 value, the same shape as source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by every extra digest, in order.
// It keys cache entries on the input plus everything that shapes the output.
func Combine(content Digest, extra ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range extra {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashString digests a string such as a version or an option set.
func HashString(s string) Digest {
	return sha256.Sum256([]byte(s))
}
