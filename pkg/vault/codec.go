package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrDecryption is returned when a sealed blob cannot be opened: wrong key
// version, truncated blob, or tampered ciphertext. Callers treat the field
// as unset rather than failing the whole load.
var ErrDecryption = errors.New("secret decryption failed")

// SecretCodec seals secret configuration fields for storage and reveals them
// on the owning read path. Nothing else sees plaintext.
type SecretCodec interface {
	Seal(plaintext string) (string, error)
	Reveal(sealed string) (string, error)
}

// AESCodec is an AES-256-GCM codec keyed by a process-wide key loaded once
// at startup. Sealed blobs carry the key id so rotation surfaces as
// ErrDecryption instead of garbage plaintext.
type AESCodec struct {
	keyID string
	aead  cipher.AEAD
}

func NewAESCodec(keyID string, key []byte) (*AESCodec, error) {
	if keyID == "" || strings.Contains(keyID, ":") {
		return nil, fmt.Errorf("invalid key id %q", keyID)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &AESCodec{keyID: keyID, aead: aead}, nil
}

// NewAESCodecFromHex builds a codec from a hex-encoded 32-byte key, the form
// the key arrives in from the secret source.
func NewAESCodecFromHex(keyID, hexKey string) (*AESCodec, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return NewAESCodec(keyID, key)
}

// GenerateKey returns a random 32-byte key suitable for NewAESCodec.
func GenerateKey() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return b, nil
}

func (c *AESCodec) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(c.keyID))
	return c.keyID + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCodec) Reveal(sealed string) (string, error) {
	keyID, blob, found := strings.Cut(sealed, ":")
	if !found || keyID != c.keyID {
		return "", ErrDecryption
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return "", ErrDecryption
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(c.keyID))
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
