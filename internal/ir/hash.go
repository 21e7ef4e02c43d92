package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainObject = "livedb/object/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ObjectDigest computes the digest stored alongside a persisted object
// payload. Type and key take part so a payload moved to another row no
// longer verifies.
func ObjectDigest(typ, key string, payload []byte) string {
	data := make([]byte, 0, len(typ)+len(key)+len(payload)+2)
	data = append(data, typ...)
	data = append(data, 0x00)
	data = append(data, key...)
	data = append(data, 0x00)
	data = append(data, payload...)
	return hashWithDomain(DomainObject, data)
}
