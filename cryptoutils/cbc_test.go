package cryptoutils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBCRoundtrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "Empty data", data: []byte{}},
		{name: "Short secret", data: []byte("uno")},
		{name: "Exact block", data: bytes.Repeat([]byte{'a'}, 16)},
		{name: "Binary data", data: []byte{0x00, 0x01, 0xFF, 0xFE}},
		{name: "Long data", data: make([]byte, 1024)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			iv, ciphertext, err := EncryptCBC(nil, key, tc.data)
			require.NoError(t, err)
			assert.Len(t, iv, 16)
			assert.Zero(t, len(ciphertext)%16)
			assert.Greater(t, len(ciphertext), len(tc.data))

			plaintext, err := DecryptCBC(key, iv, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.data, plaintext)
		})
	}
}

func TestCBCFreshIV(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 16)

	iv1, c1, err := EncryptCBC(nil, key, []byte("dos"))
	require.NoError(t, err)
	iv2, c2, err := EncryptCBC(nil, key, []byte("dos"))
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
	assert.NotEqual(t, c1, c2)
}

func TestPKCS7(t *testing.T) {
	padded := PadPKCS7([]byte("abc"), 16)
	require.Len(t, padded, 16)
	assert.Equal(t, byte(13), padded[15])

	full := PadPKCS7(bytes.Repeat([]byte{'x'}, 16), 16)
	require.Len(t, full, 32)
	assert.Equal(t, bytes.Repeat([]byte{16}, 16), full[16:])

	unpadded, err := UnpadPKCS7(padded, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), unpadded)

	bad := append([]byte{}, padded...)
	bad[14] = 1
	_, err = UnpadPKCS7(bad, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)

	_, err = UnpadPKCS7([]byte{1, 2, 3}, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x10}, 16)
	wrong := bytes.Repeat([]byte{0x11}, 16)

	iv, ciphertext, err := EncryptCBC(nil, key, []byte("tres"))
	require.NoError(t, err)

	plaintext, err := DecryptCBC(wrong, iv, ciphertext)
	if err == nil {
		assert.NotEqual(t, []byte("tres"), plaintext)
	}
}
