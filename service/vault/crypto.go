package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/pandodao/paybridge/core"
)

const KeySize = 32

var ErrIntegrity = errors.New("vault: key record failed integrity check")

// ParseKey decodes the hex encoded process key, which must be exactly 32 bytes.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("vault key is not hex: %w", err)
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(key))
	}

	return key, nil
}

func encrypt(key, plaintext []byte) (core.EncryptedKey, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return core.EncryptedKey{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return core.EncryptedKey{}, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	n := len(sealed) - gcm.Overhead()

	return core.EncryptedKey{
		IV:         hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(sealed[:n]),
		AuthTag:    hex.EncodeToString(sealed[n:]),
	}, nil
}

// decrypt never returns plaintext unless the tag verifies.
func decrypt(key []byte, enc core.EncryptedKey) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := hex.DecodeString(enc.IV)
	if err != nil || len(nonce) != gcm.NonceSize() {
		return nil, ErrIntegrity
	}

	ciphertext, err := hex.DecodeString(enc.Ciphertext)
	if err != nil {
		return nil, ErrIntegrity
	}

	tag, err := hex.DecodeString(enc.AuthTag)
	if err != nil || len(tag) != gcm.Overhead() {
		return nil, ErrIntegrity
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrIntegrity
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
