package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the sealing key from a passphrase.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltSize     = 16
)

var randomRead = func(b []byte) (int, error) { return io.ReadFull(rand.Reader, b) }

// EncryptSecret seals a plaintext secret with a passphrase-derived AES-GCM
// key. The output is hex(salt || nonce || ciphertext), suitable for storing
// in an environment variable.
func EncryptSecret(plaintext, passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase must not be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := randomRead(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := deriveGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := randomRead(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(append(salt, nonce...), sealed...)
	return hex.EncodeToString(out), nil
}

// DecryptSecret reverses EncryptSecret. A wrong passphrase fails the GCM tag
// check rather than yielding garbage.
func DecryptSecret(encryptedHex, passphrase string) (string, error) {
	raw, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", errors.New("invalid encrypted secret hex")
	}
	if len(raw) < saltSize {
		return "", errors.New("encrypted secret too short")
	}

	salt, rest := raw[:saltSize], raw[saltSize:]
	gcm, err := deriveGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(rest) < gcm.NonceSize() {
		return "", errors.New("encrypted secret too short")
	}

	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("failed to decrypt secret: wrong passphrase or corrupt data")
	}
	return string(plaintext), nil
}

// GenerateRandomToken generates a random token of specified length
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func deriveGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
