package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewVault(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		v, err := NewVault(testKey)
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewVault("")
		assert.ErrorIs(t, err, ErrKeyNotConfigured)
	})

	t.Run("non-hex key", func(t *testing.T) {
		_, err := NewVault("zz")
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := NewVault("abcd")
		assert.Error(t, err)
	})
}

func TestVault_RoundTrip(t *testing.T) {
	v, err := NewVault(testKey)
	require.NoError(t, err)

	plaintexts := []string{
		"shpat_0123456789abcdef",
		"",
		strings.Repeat("x", 4096),
		"token-with-unicode-ação",
	}
	for _, pt := range plaintexts {
		ct, err := v.Encrypt(pt)
		require.NoError(t, err)
		assert.NotEqual(t, pt, ct)

		got, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

func TestVault_NonDeterministic(t *testing.T) {
	v, err := NewVault(testKey)
	require.NoError(t, err)

	ct1, err := v.Encrypt("secret")
	require.NoError(t, err)
	ct2, err := v.Encrypt("secret")
	require.NoError(t, err)
	// Fresh nonce per call: identical plaintexts must not share ciphertext.
	assert.NotEqual(t, ct1, ct2)
}

func TestVault_TamperDetection(t *testing.T) {
	v, err := NewVault(testKey)
	require.NoError(t, err)

	ct, err := v.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = v.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestVault_DecryptInvalidInput(t *testing.T) {
	v, err := NewVault(testKey)
	require.NoError(t, err)

	_, err = v.Decrypt("not-base64!!!")
	assert.ErrorIs(t, err, ErrCiphertextInvalid)

	_, err = v.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestVault_Fields(t *testing.T) {
	v, err := NewVault(testKey)
	require.NoError(t, err)

	t.Run("nil field decrypts to empty", func(t *testing.T) {
		got, err := v.DecryptField(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty plaintext encrypts to nil", func(t *testing.T) {
		got, err := v.EncryptField("")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip through field helpers", func(t *testing.T) {
		enc, err := v.EncryptField("api-key")
		require.NoError(t, err)
		require.NotNil(t, enc)

		got, err := v.DecryptField(enc)
		require.NoError(t, err)
		assert.Equal(t, "api-key", got)
	})
}
