// Package security encrypts proxy credentials before they touch the
// persisted pool file. AES-GCM with a key derived from an environment
// variable; values carry a prefix so plaintext written by older
// deployments still loads.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	encryptionKeyEnv = "POOL_ENCRYPTION_KEY"

	// EncryptedPrefix marks values that went through EncryptCredential.
	EncryptedPrefix = "enc:"
)

// ErrNoEncryptionKey is returned when POOL_ENCRYPTION_KEY is unset.
// Callers decide whether plaintext persistence is acceptable.
var ErrNoEncryptionKey = errors.New("pool encryption key not set: " + encryptionKeyEnv)

var (
	cipherOnce sync.Once
	cipherInst cipher.AEAD
	cipherErr  error
)

func getCipher() (cipher.AEAD, error) {
	cipherOnce.Do(func() {
		rawKey := strings.TrimSpace(os.Getenv(encryptionKeyEnv))
		if rawKey == "" {
			cipherErr = ErrNoEncryptionKey
			return
		}

		block, err := aes.NewCipher(deriveKey(rawKey))
		if err != nil {
			cipherErr = fmt.Errorf("create cipher: %w", err)
			return
		}

		gcm, err := cipher.NewGCM(block)
		if err != nil {
			cipherErr = fmt.Errorf("create gcm: %w", err)
			return
		}

		cipherInst = gcm
	})

	return cipherInst, cipherErr
}

// deriveKey accepts either a base64-encoded 16/24/32 byte key or an
// arbitrary passphrase, which is hashed down to 32 bytes.
func deriveKey(raw string) []byte {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err == nil {
		switch len(decoded) {
		case 16, 24, 32:
			return decoded
		}
	}
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

func EncryptCredential(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	gcm, err := getCipher()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plain), nil)
	payload := append(nonce, sealed...)

	return EncryptedPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// DecryptCredential reverses EncryptCredential. Values without the
// prefix are returned verbatim, so legacy plaintext files keep loading.
func DecryptCredential(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := getCipher()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) <= nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plain, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt ciphertext: %w", err)
	}

	return string(plain), nil
}

func ResetCipherForTests() {
	cipherOnce = sync.Once{}
	cipherInst = nil
	cipherErr = nil
}
