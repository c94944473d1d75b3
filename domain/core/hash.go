package core

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Hash represents a SHA-256 content hash, used wherever a generic content
// fingerprint is needed (schema fingerprints, sketch cache keys).
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (h Hash) String() string         { return string(h) }
func (h Hash) IsEmpty() bool          { return h == "" }
func (h Hash) Equals(other Hash) bool { return h == other }

// Sha1Digest is the pending record's dump fingerprint (§3 "Pending
// record"). The discovery loop hashes a bulk dump incrementally while
// streaming it to a temp file; Sha1Writer exposes that running digest.
type Sha1Digest string

func NewSha1Digest(data []byte) Sha1Digest {
	sum := sha1.Sum(data)
	return Sha1Digest(hex.EncodeToString(sum[:]))
}

func (d Sha1Digest) String() string           { return string(d) }
func (d Sha1Digest) IsEmpty() bool            { return d == "" }
func (d Sha1Digest) Equals(o Sha1Digest) bool { return d == o }

// Sha1Writer lets a caller io.Copy a stream through it while writing to a
// temp file, then read off the final digest once the stream is drained.
type Sha1Writer struct {
	h hash.Hash
}

func NewSha1Writer() *Sha1Writer {
	return &Sha1Writer{h: sha1.New()}
}

func (w *Sha1Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

func (w *Sha1Writer) Digest() Sha1Digest {
	return Sha1Digest(hex.EncodeToString(w.h.Sum(nil)))
}
