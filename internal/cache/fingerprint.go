package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is a stable identity for "this logical request", per spec.md
// §4 glossary: hash of (group, normalized_params, content_digest). Same
// logical request always yields the same Fingerprint regardless of which
// wire-level wrapper (multipart upload, raw bytes, base64) carried the
// content.
type Fingerprint string

// ComputeFingerprint combines a model group, canonicalized request params
// (already JSON-marshaled by the caller, e.g. DefaultKeyGenerator's
// sb.String() input) and a content digest into one stable hash.
func ComputeFingerprint(group string, normalizedParams []byte, contentDigest string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(group))
	h.Write([]byte{0})
	h.Write(normalizedParams)
	h.Write([]byte{0})
	h.Write([]byte(contentDigest))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// ContentDigest hashes raw content (audio bytes, a tiny embedded PDF, a
// canonicalized message list) into the content_digest component of a
// Fingerprint.
func ContentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
