package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const codecInfo = "spotlink session cookie v1"

// ErrInvalidCookie is returned when a sealed value cannot be opened.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Codec seals cookie values with XChaCha20-Poly1305.
//
// The cookie name is bound as associated data, so a value cannot be replayed under another name.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives a 256-bit key from secret with HKDF-SHA256.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 characters, got %d", len(secret))
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(codecInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext for the cookie called name.
func (c *Codec) Seal(name string, plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, []byte(name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses [Codec.Seal]. Tampered, truncated or misnamed values return [ErrInvalidCookie].
func (c *Codec) Open(name, value string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, ErrInvalidCookie
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return nil, ErrInvalidCookie
	}

	return plaintext, nil
}
