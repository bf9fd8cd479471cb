// Package cryptox implements the credential vault that protects stored mail
// app passwords. Ciphertexts are AES-256-GCM sealed with a key derived from a
// server-held secret.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

// vaultSalt is fixed so that the same secret always yields the same key
// across restarts.
var vaultSalt = []byte("mailreminder/credential-vault/v1")

// DeriveKey stretches secret into a 32-byte AES key with argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Vault encrypts and decrypts short secrets (mail app passwords).
// A Vault is safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the vault key from secret. It is meant to be called once
// at startup.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret is empty")
	}

	key := DeriveKey([]byte(secret), vaultSalt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns
// base64url(nonce || ciphertext). Two calls with the same input produce
// different outputs.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := common.GenerateRandByteArray(nonceSize)
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure (bad encoding, truncated input,
// wrong secret, tampering) is reported as common.ErrorDecryption.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", common.ErrorDecryption
	}
	if len(raw) < nonceSize+v.aead.Overhead() {
		return "", common.ErrorDecryption
	}

	plaintext, err := v.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", common.ErrorDecryption
	}
	return string(plaintext), nil
}
