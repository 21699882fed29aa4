package cryptoutils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHSharedSecretAgreement(t *testing.T) {
	alice, alicePub, err := GenerateDHPair(nil)
	require.NoError(t, err)
	bob, bobPub, err := GenerateDHPair(nil)
	require.NoError(t, err)

	s1, err := DeriveDHShared(alice, bobPub)
	require.NoError(t, err)
	s2, err := DeriveDHShared(bob, alicePub)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.NotEmpty(t, s1)
}

func TestDHFreshPairs(t *testing.T) {
	_, pub1, err := GenerateDHPair(nil)
	require.NoError(t, err)
	_, pub2, err := GenerateDHPair(nil)
	require.NoError(t, err)

	assert.NotEqual(t, 0, pub1.Cmp(pub2), "two generated pairs should not share a public value")
}

func TestDHPublicEncoding(t *testing.T) {
	_, pub, err := GenerateDHPair(nil)
	require.NoError(t, err)

	encoded := DHPublicBytes(pub)
	require.NotEmpty(t, encoded)
	assert.NotEqual(t, byte(0), encoded[0], "encoding must be minimal")
	assert.LessOrEqual(t, len(encoded), 128)

	decoded, err := ParseDHPublic(encoded)
	require.NoError(t, err)
	assert.Equal(t, 0, pub.Cmp(decoded))
}

func TestParseDHPublicRejectsDegenerateValues(t *testing.T) {
	pMinusOne := new(big.Int).Sub(DHPrime(), big.NewInt(1))

	testCases := []struct {
		name  string
		value []byte
	}{
		{name: "empty", value: nil},
		{name: "zero", value: []byte{0}},
		{name: "one", value: []byte{1}},
		{name: "p minus one", value: pMinusOne.Bytes()},
		{name: "prime", value: DHPrime().Bytes()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDHPublic(tc.value)
			assert.ErrorIs(t, err, ErrInvalidDHPublic)
		})
	}

	_, err := ParseDHPublic([]byte{2})
	assert.NoError(t, err)
}

func TestDHPrimeIsOakleyGroup2(t *testing.T) {
	p := DHPrime()
	assert.Equal(t, 1024, p.BitLen())
	assert.True(t, p.ProbablyPrime(20))

	// Callers cannot mutate the group.
	p.SetInt64(7)
	assert.Equal(t, 1024, DHPrime().BitLen())
}
