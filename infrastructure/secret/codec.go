// Package secret implements the symmetric codec protecting stored platform
// app secrets. Each encryption derives a fresh AES-256 key from the
// per-installation master key and a random salt; the envelope is
// authenticated, so tampered ciphertext fails loudly on decrypt.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLen           = 32
	SaltLen          = 16
	NonceLen         = 12
	PBKDF2Iterations = 120000

	envelopeVersion = 1
)

var (
	// ErrMasterKey means the codec cannot be constructed at all; treated as
	// a fatal configuration error at startup, never a per-call error.
	ErrMasterKey = errors.New("master key missing or too short (need at least 16 bytes)")
	// ErrInvalidEnvelope marks a structurally broken envelope.
	ErrInvalidEnvelope = errors.New("invalid secret envelope")
	// ErrIntegrity marks an envelope that failed authentication: wrong key,
	// truncated or tampered ciphertext.
	ErrIntegrity = errors.New("secret envelope failed integrity check")
)

// envelope is the stored JSON form. Fields are raw-url base64.
type envelope struct {
	V     int    `json:"v"`
	Salt  string `json:"salt"`
	Nonce string `json:"nonce"`
	CT    string `json:"ct"`
}

// Codec encrypts and decrypts secret strings under one master key.
// Safe for concurrent use.
type Codec struct {
	masterKey []byte
}

func NewCodec(masterKey string) (*Codec, error) {
	if len(masterKey) < 16 {
		return nil, ErrMasterKey
	}
	return &Codec{masterKey: []byte(masterKey)}, nil
}

func b64Encode(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func b64Decode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

func (c *Codec) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(c.masterKey, salt, PBKDF2Iterations, KeyLen, sha256.New)
}

// Encrypt seals plaintext into a fresh envelope. Salt and nonce are newly
// random on every call and never reused.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm: %w", err)
	}
	ct := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	out, err := json.Marshal(envelope{
		V:     envelopeVersion,
		Salt:  b64Encode(salt),
		Nonce: b64Encode(nonce),
		CT:    b64Encode(ct),
	})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(out), nil
}

// Decrypt opens an envelope produced by Encrypt. A tampered or truncated
// envelope fails with ErrIntegrity; it never returns wrong plaintext.
func (c *Codec) Decrypt(sealed string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(sealed), &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.V != envelopeVersion {
		return "", fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, env.V)
	}
	salt, err := b64Decode(env.Salt)
	if err != nil || len(salt) != SaltLen {
		return "", fmt.Errorf("%w: bad salt", ErrInvalidEnvelope)
	}
	nonce, err := b64Decode(env.Nonce)
	if err != nil || len(nonce) != NonceLen {
		return "", fmt.Errorf("%w: bad nonce", ErrInvalidEnvelope)
	}
	ct, err := b64Decode(env.CT)
	if err != nil || len(ct) < 16 {
		return "", fmt.Errorf("%w: ciphertext too short", ErrInvalidEnvelope)
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
