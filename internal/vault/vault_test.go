package vault

import (
	"bytes"
	"encoding/base64"
	stderrors "errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-cards/internal/errors"
)

const testSecret = "test-secret-key-for-encryption-test"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testSecret)
	require.NoError(t, err)
	return v
}

func randomPrintable(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(' ' + r.Intn('~'-' '+1))
	}
	return string(b)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)
	r := rand.New(rand.NewSource(1))

	for n := 1; n <= 64; n++ {
		for i := 0; i < 8; i++ {
			plain := randomPrintable(r, n)

			encoded, err := v.Encrypt(plain)
			require.NoError(t, err)
			assert.NotEqual(t, plain, encoded)

			decoded, err := v.Decrypt(encoded)
			require.NoError(t, err)
			assert.Equal(t, plain, decoded)
		}
	}
}

func TestRoundTripUTF8(t *testing.T) {
	v := newTestVault(t)

	for _, plain := range []string{"", "Иван Петров", "4111 1111 1111 1111", "日本語"} {
		encoded, err := v.Encrypt(plain)
		require.NoError(t, err)

		decoded, err := v.Decrypt(encoded)
		require.NoError(t, err)
		assert.Equal(t, plain, decoded)
	}
}

func TestEncodedLayout(t *testing.T) {
	v := newTestVault(t)
	plain := "4111111111111111"

	encoded, err := v.Encrypt(plain)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Len(t, raw, NonceSize+len(plain)+TagSize)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := newTestVault(t)
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		encoded, err := v.Encrypt("4111111111111111")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)

		nonce := string(raw[:NonceSize])
		_, dup := seen[nonce]
		require.False(t, dup, "nonce reused")
		seen[nonce] = struct{}{}
	}
}

func TestDecryptRejectsTamperedBytes(t *testing.T) {
	v := newTestVault(t)

	encoded, err := v.Encrypt("4111111111111111")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	for i := range raw {
		tampered := bytes.Clone(raw)
		tampered[i] ^= 0x01

		plain, err := v.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		assert.Empty(t, plain, "byte %d", i)
		assert.True(t, stderrors.Is(err, errors.ErrCrypto), "byte %d", i)
	}
}

func TestDecryptRejectsTamperedEncoding(t *testing.T) {
	v := newTestVault(t)

	encoded, err := v.Encrypt("5500 0000 0000 0004")
	require.NoError(t, err)

	for i := 0; i < len(encoded); i++ {
		tampered := []byte(encoded)
		tampered[i] ^= 0x01

		plain, err := v.Decrypt(string(tampered))
		assert.Empty(t, plain, "char %d", i)
		assert.True(t, stderrors.Is(err, errors.ErrCrypto), "char %d", i)
	}
}

func TestDecryptMalformed(t *testing.T) {
	v := newTestVault(t)
	short := base64.StdEncoding.EncodeToString(make([]byte, NonceSize+TagSize-1))

	for name, input := range map[string]string{
		"empty":      "",
		"not base64": "%%%not-base64%%%",
		"too short":  short,
	} {
		t.Run(name, func(t *testing.T) {
			plain, err := v.Decrypt(input)
			assert.Empty(t, plain)
			assert.True(t, stderrors.Is(err, errors.ErrCrypto))
		})
	}
}

func TestDecryptWithOtherKeyFails(t *testing.T) {
	v := newTestVault(t)
	other, err := New("another-secret")
	require.NoError(t, err)

	encoded, err := v.Encrypt("4111111111111111")
	require.NoError(t, err)

	_, err = other.Decrypt(encoded)
	assert.Equal(t, errors.KindCrypto, errors.KindOf(err))
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.True(t, stderrors.Is(err, errors.ErrCrypto))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, stderrors.New("entropy exhausted") }

func TestEncryptNonceFailure(t *testing.T) {
	v, err := newVault(testSecret, failingReader{})
	require.NoError(t, err)

	encoded, err := v.Encrypt("4111111111111111")
	assert.Empty(t, encoded)
	assert.True(t, stderrors.Is(err, errors.ErrCrypto))
}

func TestMaskCardNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4111111111111111", "**** **** **** 1111"},
		{"1234567890123456", "**** **** **** 3456"},
		{"4111 1111 1111 1111", "**** **** **** 1111"},
		{"4111-1111-1111-9876", "**** **** **** 9876"},
		{"1234", "**** **** **** 1234"},
		{"12", "****"},
		{"", "****"},
		{"abc", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskCardNumber(tt.in))
		})
	}
}

func TestMaskEncrypted(t *testing.T) {
	v := newTestVault(t)

	encoded, err := v.Encrypt("4111 1111 1111 4242")
	require.NoError(t, err)

	masked, err := v.MaskEncrypted(encoded)
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 4242", masked)

	_, err = v.MaskEncrypted("garbage")
	assert.Error(t, err)
}
