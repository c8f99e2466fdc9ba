package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, keySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func TestNewAesGcmCryptoService_KeyValidation(t *testing.T) {
	_, err := NewAesGcmCryptoService("zz")
	assert.Error(t, err)

	_, err = NewAesGcmCryptoService(strings.Repeat("ab", 16))
	assert.ErrorContains(t, err, "must be 32 bytes")

	_, err = NewAesGcmCryptoService(generateTestKey(t))
	assert.NoError(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	svc, err := NewAesGcmCryptoService(generateTestKey(t))
	require.NoError(t, err)

	sealed, err := svc.Encrypt("eyJhbGciOiJIUzI1NiJ9.payload.sig")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, prefix))
	assert.NotContains(t, sealed, "payload")

	plain, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.payload.sig", plain)
}

func TestEncrypt_UsesFreshNonce(t *testing.T) {
	svc, err := NewAesGcmCryptoService(generateTestKey(t))
	require.NoError(t, err)

	a, err := svc.Encrypt("token")
	require.NoError(t, err)
	b, err := svc.Encrypt("token")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_Failures(t *testing.T) {
	svc, err := NewAesGcmCryptoService(generateTestKey(t))
	require.NoError(t, err)
	other, err := NewAesGcmCryptoService(generateTestKey(t))
	require.NoError(t, err)

	_, err = svc.Decrypt("plain-token")
	assert.ErrorIs(t, err, ErrNotSealed)

	_, err = svc.Decrypt(prefix + "AAAA")
	assert.ErrorContains(t, err, "too short")

	sealed, err := other.Encrypt("token")
	require.NoError(t, err)
	_, err = svc.Decrypt(sealed)
	assert.ErrorContains(t, err, "failed to decrypt")
}
