package journal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Codec transforms record payloads on their way to and from disk. The store
// treats it as opaque; encryption at rest is just a codec.
type Codec interface {
	Encode(raw []byte) ([]byte, error)
	Decode(payload []byte) ([]byte, error)
}

// Plain is the identity codec.
type Plain struct{}

func (Plain) Encode(raw []byte) ([]byte, error)     { return raw, nil }
func (Plain) Decode(payload []byte) ([]byte, error) { return payload, nil }

// AES seals each record with AES-GCM, nonce prepended.
type AES struct {
	aead cipher.AEAD
}

// NewAES builds an AES codec from a 16, 24 or 32 byte key.
func NewAES(key []byte) (*AES, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("journal: aes key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("journal: gcm: %w", err)
	}
	return &AES{aead: aead}, nil
}

func (c *AES) Encode(raw []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("journal: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, raw, nil), nil
}

func (c *AES) Decode(payload []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(payload) < ns {
		return nil, fmt.Errorf("journal: sealed record too short")
	}
	raw, err := c.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open sealed record: %w", err)
	}
	return raw, nil
}
