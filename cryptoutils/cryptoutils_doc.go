// Package cryptoutils provides the cryptographic building blocks used by Secret Service
// sessions that negotiate "dh-ietf1024-sha256-aes128-cbc-pkcs7".
//
// The transfer scheme is the one defined by the freedesktop.org Secret Service API:
//
//   - Diffie-Hellman over the 1024-bit MODP group of RFC 2409 (generator 2)
//   - HKDF-SHA256 with a zero salt and empty info to derive a 16-byte AES key
//   - AES-128 in CBC mode with PKCS#7 padding and a fresh 16-byte IV per secret
//
// # Key Functions
//
//   - GenerateDHPair / DeriveDHShared - one side of the key exchange
//   - ParseDHPublic / DHPublicBytes - big-endian wire encoding of public values
//   - DeriveKey - HKDF expansion of the shared secret
//   - EncryptCBC / DecryptCBC - secret transfer encryption
//
// # Security Considerations
//
// The scheme only protects secrets in transit between a client and the service on the
// same host. It carries no authentication tag and a 1024-bit group, so it must not be
// used as a general purpose encryption facility.
package cryptoutils
