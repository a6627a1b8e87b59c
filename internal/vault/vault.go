// Package vault protects card numbers at rest with AES-256-GCM and renders
// them for display in masked form.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"bank-cards/internal/errors"
)

const (
	// NonceSize is the GCM nonce length prefixed to every ciphertext.
	NonceSize = 12
	// TagSize is the GCM authentication tag length appended by Seal.
	TagSize = 16

	genericMask = "****"
)

// Strict decoding rejects non-zero padding bits, so every change to the
// encoded text changes the decoded bytes.
var encoding = base64.StdEncoding.Strict()

// Vault encrypts and decrypts card numbers. The encoded form is
// base64(nonce ‖ ciphertext ‖ tag). A Vault is safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New derives the AES-256 key as SHA-256(secret).
func New(secret string) (*Vault, error) {
	return newVault(secret, rand.Reader)
}

func newVault(secret string, random io.Reader) (*Vault, error) {
	if secret == "" {
		return nil, errors.ErrCrypto.WithDetails("encryption secret is empty")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.ErrCrypto.WithDetails(fmt.Sprintf("cipher init: %v", err))
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errors.ErrCrypto.WithDetails(fmt.Sprintf("gcm init: %v", err))
	}

	return &Vault{aead: aead, rand: random}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return "", errors.ErrCrypto.WithDetails(fmt.Sprintf("nonce generation: %v", err))
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decrypt verifies and opens an encoded ciphertext. On any failure it returns
// an empty string and a crypto error; partial plaintext is never returned.
func (v *Vault) Decrypt(encoded string) (string, error) {
	raw, err := encoding.DecodeString(encoded)
	if err != nil {
		return "", errors.ErrCrypto.WithDetails("ciphertext is not valid base64")
	}
	if len(raw) < NonceSize+TagSize {
		return "", errors.ErrCrypto.WithDetails("ciphertext too short")
	}

	nonce, sealed := raw[:NonceSize], raw[NonceSize:]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.ErrCrypto.WithDetails("ciphertext authentication failed")
	}
	if !utf8.Valid(plain) {
		return "", errors.ErrCrypto.WithDetails("plaintext is not valid UTF-8")
	}

	return string(plain), nil
}

// MaskEncrypted decrypts an encoded card number only to mask it.
func (v *Vault) MaskEncrypted(encoded string) (string, error) {
	plain, err := v.Decrypt(encoded)
	if err != nil {
		return "", err
	}
	return MaskCardNumber(plain), nil
}

// MaskCardNumber keeps the last four digits of s, e.g. "**** **** **** 3456".
// Inputs with fewer than four digits collapse to "****".
func MaskCardNumber(s string) string {
	digits := Digits(s)
	if len(digits) < 4 {
		return genericMask
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// Digits returns the ASCII digits of s in order.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
