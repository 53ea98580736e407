package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the stable identity of a posting across sources and runs.
func Fingerprint(title, link string) string {
	h := sha256.New()
	h.Write([]byte(Fold(title)))
	h.Write([]byte{0x1f})
	h.Write([]byte(Fold(CanonicalizeURL(link))))
	return hex.EncodeToString(h.Sum(nil))
}
