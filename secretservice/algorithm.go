package secretservice

import (
	"io"

	"github.com/ruteri/secret-service/cryptoutils"
	"github.com/ruteri/secret-service/interfaces"
)

// Negotiation algorithm names.
const (
	AlgorithmPlain = "plain"
	AlgorithmDHAES = "dh-ietf1024-sha256-aes128-cbc-pkcs7"
)

// dhAESKeySize is the AES-128 key length derived from the shared secret.
const dhAESKeySize = 16

// Algorithm is a session negotiation variant.
//
// Negotiate consumes the caller's OpenSession input and returns the output to
// send back together with the session key (nil for keyless sessions).
// Encrypt transforms a secret under a session key into (parameters, value).
type Algorithm interface {
	Name() string
	Negotiate(random io.Reader, input any) (output any, key []byte, err error)
	Encrypt(random io.Reader, key, data []byte) (params, value []byte, err error)
}

// DefaultAlgorithms returns the full algorithm table.
func DefaultAlgorithms() []Algorithm {
	return []Algorithm{PlainAlgorithm{}, DHAESAlgorithm{}}
}

// PlainAlgorithm transfers secrets unencrypted.
type PlainAlgorithm struct{}

func (PlainAlgorithm) Name() string { return AlgorithmPlain }

// Negotiate accepts a string placeholder and ignores its value.
func (PlainAlgorithm) Negotiate(_ io.Reader, input any) (any, []byte, error) {
	if _, ok := input.(string); !ok {
		return nil, nil, interfaces.InvalidArgs("algorithm %s expects a string parameter, got %T", AlgorithmPlain, input)
	}
	return "", nil, nil
}

// Encrypt is the identity with empty parameters.
func (PlainAlgorithm) Encrypt(_ io.Reader, _ []byte, data []byte) ([]byte, []byte, error) {
	return []byte{}, append([]byte{}, data...), nil
}

// DHAESAlgorithm agrees on a key with Diffie-Hellman over the IETF 1024-bit group,
// expands it with HKDF-SHA256 and encrypts secrets with AES-128-CBC.
type DHAESAlgorithm struct{}

func (DHAESAlgorithm) Name() string { return AlgorithmDHAES }

// Negotiate expects the caller's public value as big-endian bytes and returns
// this side's public value.
func (DHAESAlgorithm) Negotiate(random io.Reader, input any) (any, []byte, error) {
	peerBytes, ok := input.([]byte)
	if !ok {
		return nil, nil, interfaces.InvalidArgs("algorithm %s expects a byte array parameter, got %T", AlgorithmDHAES, input)
	}

	peer, err := cryptoutils.ParseDHPublic(peerBytes)
	if err != nil {
		return nil, nil, interfaces.InvalidArgs("invalid public value for %s: %v", AlgorithmDHAES, err)
	}

	priv, pub, err := cryptoutils.GenerateDHPair(random)
	if err != nil {
		return nil, nil, err
	}

	shared, err := cryptoutils.DeriveDHShared(priv, peer)
	if err != nil {
		return nil, nil, interfaces.InvalidArgs("failed to derive shared secret: %v", err)
	}

	key, err := cryptoutils.DeriveKey(shared, dhAESKeySize)
	if err != nil {
		return nil, nil, err
	}

	return cryptoutils.DHPublicBytes(pub), key, nil
}

// Encrypt returns (IV, ciphertext).
func (DHAESAlgorithm) Encrypt(random io.Reader, key, data []byte) ([]byte, []byte, error) {
	return cryptoutils.EncryptCBC(random, key, data)
}
