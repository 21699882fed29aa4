package cryptoutils

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// maxHKDFLength is the RFC 5869 output limit for SHA-256 (255 blocks).
const maxHKDFLength = 255 * sha256.Size

// DeriveKey runs HKDF-SHA256 extract-and-expand over ikm with a zero salt and an
// empty info string, returning exactly length bytes. It is a pure function.
func DeriveKey(ikm []byte, length int) ([]byte, error) {
	if length <= 0 || length > maxHKDFLength {
		return nil, fmt.Errorf("invalid HKDF output length %d", length)
	}

	// A nil salt is a hash-length block of zeros.
	stream := hkdf.New(sha256.New, ikm, nil, nil)
	key := make([]byte, length)
	if _, err := io.ReadFull(stream, key); err != nil {
		return nil, fmt.Errorf("failed to expand key: %w", err)
	}
	return key, nil
}
