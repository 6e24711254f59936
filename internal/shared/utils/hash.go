package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b"
)

// Hasher provides content fingerprints
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b)
}

// Hash computes a hex digest of data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case BLAKE2b:
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes a digest of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashSections computes a digest over named, ordered sections.
// Callers must pass section values in a canonical order; the section names and
// value counts are part of the input so that ("a", ["x"]), ("b", []) never
// collides with ("a", []), ("b", ["x"]).
func (h *Hasher) HashSections(sections ...Section) string {
	var b strings.Builder
	for _, s := range sections {
		b.WriteString(s.Name)
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(len(s.Values)))
		b.WriteByte('{')
		for _, v := range s.Values {
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		}
		b.WriteByte('}')
	}
	return h.HashString(b.String())
}

// Section is one named list of values fed to HashSections
type Section struct {
	Name   string
	Values []string
}
