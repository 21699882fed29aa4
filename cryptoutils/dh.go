package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ietf1024Prime is the 1024-bit MODP prime of the second Oakley group (RFC 2409 6.2).
const ietf1024Prime = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381" +
	"FFFFFFFFFFFFFFFF"

var (
	dhPrime     *big.Int
	dhGenerator = big.NewInt(2)

	// dhPrivateBound is 2^(bitlen(P)-1); private exponents are drawn from [1, dhPrivateBound).
	dhPrivateBound *big.Int
)

func init() {
	var ok bool
	dhPrime, ok = new(big.Int).SetString(ietf1024Prime, 16)
	if !ok {
		panic("cryptoutils: invalid DH prime")
	}
	dhPrivateBound = new(big.Int).Lsh(big.NewInt(1), uint(dhPrime.BitLen()-1))
}

// ErrInvalidDHPublic is returned for peer values outside (1, P-1).
var ErrInvalidDHPublic = errors.New("invalid Diffie-Hellman public value")

// DHPrime returns a copy of the group modulus.
func DHPrime() *big.Int {
	return new(big.Int).Set(dhPrime)
}

// DHPrivateKey is one side of a Diffie-Hellman exchange over the IETF 1024-bit group.
// It is not safe for real-world use and exists to interoperate with Secret Service
// clients negotiating "dh-ietf1024-sha256-aes128-cbc-pkcs7".
type DHPrivateKey struct {
	x *big.Int
}

// GenerateDHPair draws a fresh private exponent and computes the matching public value.
// A nil reader uses crypto/rand.
func GenerateDHPair(random io.Reader) (*DHPrivateKey, *big.Int, error) {
	if random == nil {
		random = rand.Reader
	}

	var x *big.Int
	for x == nil || x.Sign() == 0 {
		var err error
		x, err = rand.Int(random, dhPrivateBound)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate DH private value: %w", err)
		}
	}

	priv := &DHPrivateKey{x: x}
	return priv, priv.Public(), nil
}

// Public returns base^x mod P.
func (k *DHPrivateKey) Public() *big.Int {
	return new(big.Int).Exp(dhGenerator, k.x, dhPrime)
}

// DeriveDHShared computes peer^x mod P serialized big-endian with no padding.
func DeriveDHShared(priv *DHPrivateKey, peer *big.Int) ([]byte, error) {
	if err := validateDHPublic(peer); err != nil {
		return nil, err
	}
	return new(big.Int).Exp(peer, priv.x, dhPrime).Bytes(), nil
}

// ParseDHPublic decodes a big-endian public value and checks it is inside the group.
func ParseDHPublic(data []byte) (*big.Int, error) {
	y := new(big.Int).SetBytes(data)
	if err := validateDHPublic(y); err != nil {
		return nil, err
	}
	return y, nil
}

// DHPublicBytes serializes a public value big-endian, minimal length.
func DHPublicBytes(y *big.Int) []byte {
	return y.Bytes()
}

func validateDHPublic(y *big.Int) error {
	if y == nil {
		return ErrInvalidDHPublic
	}
	pMinusOne := new(big.Int).Sub(dhPrime, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinusOne) >= 0 {
		return ErrInvalidDHPublic
	}
	return nil
}
