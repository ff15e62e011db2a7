package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func withKey(t *testing.T, key string) {
	t.Helper()
	t.Setenv("POOL_ENCRYPTION_KEY", key)
	ResetCipherForTests()
	t.Cleanup(ResetCipherForTests)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	withKey(t, "a-passphrase-not-base64")

	sealed, err := EncryptCredential("hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(sealed, EncryptedPrefix) {
		t.Fatalf("sealed value %q lacks prefix", sealed)
	}
	if strings.Contains(sealed, "hunter2") {
		t.Fatal("ciphertext must not contain the plaintext")
	}

	plain, err := DecryptCredential(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "hunter2" {
		t.Fatalf("round trip = %q, want hunter2", plain)
	}
}

func TestEncryptWithBase64Key(t *testing.T) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}
	withKey(t, base64.StdEncoding.EncodeToString(raw))

	sealed, err := EncryptCredential("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	plain, err := DecryptCredential(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "secret" {
		t.Fatalf("round trip = %q", plain)
	}
}

func TestEncryptWithoutKey(t *testing.T) {
	withKey(t, "")

	if _, err := EncryptCredential("secret"); !errors.Is(err, ErrNoEncryptionKey) {
		t.Fatalf("err = %v, want ErrNoEncryptionKey", err)
	}
}

func TestEncryptEmptyValue(t *testing.T) {
	withKey(t, "")

	// Empty credentials never touch the cipher, so no key is needed.
	sealed, err := EncryptCredential("")
	if err != nil || sealed != "" {
		t.Fatalf("empty value = (%q, %v), want (\"\", nil)", sealed, err)
	}
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	withKey(t, "")

	plain, err := DecryptCredential("legacy-plaintext")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "legacy-plaintext" {
		t.Fatalf("passthrough = %q", plain)
	}
}

func TestDecryptGarbage(t *testing.T) {
	withKey(t, "a-passphrase")

	cases := []string{
		EncryptedPrefix + "%%%not-base64%%%",
		EncryptedPrefix + base64.StdEncoding.EncodeToString([]byte("short")),
		EncryptedPrefix + base64.StdEncoding.EncodeToString(make([]byte, 64)),
	}
	for _, value := range cases {
		if _, err := DecryptCredential(value); err == nil {
			t.Fatalf("decrypt of %q should fail", value)
		}
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	withKey(t, "first-key")
	sealed, err := EncryptCredential("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	withKey(t, "second-key")
	if _, err := DecryptCredential(sealed); err == nil {
		t.Fatal("decrypt under a different key should fail")
	}
}
