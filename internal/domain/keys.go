package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DeriveKey returns the deterministic cache key of req under namespace and version.
// Fields are length-prefixed so that no two field lists share an encoding.
func DeriveKey(ns Namespace, version string, req GenerationRequest) CacheKey {
	h := sha256.New()

	var lenBuf [binary.MaxVarintLen64]byte
	write := func(field string) {
		n := binary.PutUvarint(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:n])
		h.Write([]byte(field))
	}

	write(string(ns))
	write(version)
	for _, field := range req.CanonicalFields() {
		write(field)
	}

	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// CanonicalizePrompt normalizes a topic or prompt context: NFC, trimmed,
// inner whitespace collapsed to single spaces.
func CanonicalizePrompt(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// DurablePath returns the durable object path {namespace}/{partition}/{key}.
func DurablePath(ns Namespace, partition string, key CacheKey) string {
	return string(ns) + "/" + partition + "/" + string(key)
}

// NamespacePrefix returns the key prefix shared by every ephemeral entry of ns.
func NamespacePrefix(ns Namespace) string {
	return string(ns) + ":"
}

// EphemeralKey returns the ephemeral-tier key of an entry.
func EphemeralKey(ns Namespace, key CacheKey) string {
	return NamespacePrefix(ns) + string(key)
}

// sanitizeSegment makes s safe to use as a single path segment.
func sanitizeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "_"
	}
	return out
}
