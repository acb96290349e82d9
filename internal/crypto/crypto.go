// Package crypto derives the server's storage keys and seals values at rest.
// - Store keys: derived from the master key using HKDF-SHA256, one per purpose
// - Sealing: AES-256-GCM with a random nonce prepended to the ciphertext
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of a derived key in bytes (256 bits)
	KeySize = 32

	// NonceSize is the size of the AES-GCM nonce in bytes (96 bits)
	NonceSize = 12

	// MinMasterKeySize is the shortest master key accepted.
	MinMasterKeySize = 16

	tagSize = 16
)

// Key purposes. Each yields an independent key from the same master key.
const (
	PurposeSQLite = "sqlite"
	PurposeObject = "object"
)

// DeriveKey derives a purpose-specific key from a master key using HKDF-SHA256.
// info = "notebook:" + purpose + ":v" + version
func DeriveKey(masterKey []byte, purpose string, version int) []byte {
	info := fmt.Sprintf("notebook:%s:v%d", purpose, version)

	// Salt is nil - using a random master key is sufficient for our use case
	hkdfReader := hkdf.New(sha256.New, masterKey, nil, []byte(info))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		// HKDF cannot run short for a 32-byte read.
		panic(fmt.Sprintf("HKDF failed: %v", err))
	}
	return key
}

// ParseMasterKey decodes a hex master key.
func ParseMasterKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("master key must be hex: %w", err)
	}
	if len(key) < MinMasterKeySize {
		return nil, fmt.Errorf("master key must be at least %d bytes, got %d", MinMasterKeySize, len(key))
	}
	return key, nil
}

// Seal encrypts plaintext using AES-256-GCM.
// Output format: nonce (12 bytes) || ciphertext || auth tag (16 bytes)
func Seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+tagSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal.
func Open(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < NonceSize+tagSize {
		return nil, fmt.Errorf("sealed value too short: got %d bytes, need at least %d", len(sealed), NonceSize+tagSize)
	}

	plaintext, err := gcm.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
