package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// sealedPrefix marks AES-GCM payloads so values written before a key was
// configured can still be read back as plain bytes.
var sealedPrefix = []byte("gcm1:")

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Service encrypts data at rest with AES-256-GCM. Without a key it passes
// data through unchanged.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(sealedPrefix)+len(nonce)+len(plain)+s.aead.Overhead())
	out = append(out, sealedPrefix...)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plain, nil), nil
}

// Decrypt opens sealed payloads and returns unsealed ones as they are.
func (s *Service) Decrypt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !bytes.HasPrefix(data, sealedPrefix) {
		return data, nil
	}
	if !s.Configured() {
		return nil, errors.New("encrypted data present but no DATA_ENCRYPTION_KEY configured")
	}
	payload := data[len(sealedPrefix):]
	if len(payload) < s.aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, sealed := payload[:s.aead.NonceSize()], payload[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, sealed, nil)
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(value []byte) (string, error) {
	plain, err := s.Decrypt(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return []byte(raw), nil
}
