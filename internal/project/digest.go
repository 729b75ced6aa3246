package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a 32-byte content hash used to key snapshots, declarations and
// generated units.
type Digest [32]byte

// DigestBytes hashes raw content.
func DigestBytes(b []byte) Digest {
	return sha256.Sum256(b)
}

// DigestStrings hashes an ordered list of strings with length framing, so
// ("ab","c") and ("a","bc") produce different digests.
func DigestStrings(parts ...string) Digest {
	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range parts {
		n := len(p)
		for i := 0; i < 8; i++ {
			lenBuf[i] = byte(n >> (8 * i))
		}
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Combine folds several digests into one, order-sensitive.
func Combine(digests ...Digest) Digest {
	h := sha256.New()
	for _, d := range digests {
		h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// String returns the full lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, enough for cache file names.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
