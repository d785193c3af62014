package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"rebooked/api/internal/core/domain"
)

const (
	ivSize  = 12 // 96-bit IV, the GCM standard nonce size
	tagSize = 16 // 128-bit authentication tag
	keySize = 32 // AES-256
)

var (
	ErrMissingKey       = errors.New("missing encryption key")
	ErrInvalidKeyLength = errors.New("encryption key must be exactly 32 bytes")
	ErrEncryptionFailed = errors.New("encryption failed")
)

// FieldEncryptor performs authenticated encryption of single field values,
// producing self-describing envelopes interoperable with every envelope this
// system has ever written.
type FieldEncryptor struct{}

func NewFieldEncryptor() *FieldEncryptor {
	return &FieldEncryptor{}
}

// importKey turns a distributed key string into raw AES-256 key material.
// Keys arrive in one of two formats with no flag telling them apart, so the
// import is an explicit two-step parse:
//
//  1. if the string is valid standard base64 AND decodes to exactly 32 bytes,
//     the decoded bytes are the key;
//  2. otherwise the raw UTF-8 bytes are the key, provided there are exactly 32.
//
// This order must not change: previously stored envelopes were produced with
// keys imported exactly this way.
func importKey(keyString string) ([]byte, error) {
	if keyString == "" {
		return nil, ErrMissingKey
	}

	if decoded, err := base64.StdEncoding.DecodeString(keyString); err == nil && len(decoded) == keySize {
		return decoded, nil
	}

	raw := []byte(keyString)
	if len(raw) != keySize {
		return nil, ErrInvalidKeyLength
	}
	return raw, nil
}

// EncryptField encrypts one plaintext field value under the supplied key
// string and stamps the envelope with the key version.
//
// 🛡️ A fresh random 96-bit IV is generated per call and never derived from
// content; no additional authenticated data is used.
func (e *FieldEncryptor) EncryptField(plaintext, keyString string, version int) (domain.Envelope, error) {
	key, err := importKey(keyString)
	if err != nil {
		return domain.Envelope{}, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: block cipher: %v", ErrEncryptionFailed, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: GCM: %v", ErrEncryptionFailed, err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: IV generation: %v", ErrEncryptionFailed, err)
	}

	// Seal returns ciphertext with the auth tag appended; the envelope stores
	// the two parts separately.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	if len(sealed) < tagSize {
		return domain.Envelope{}, fmt.Errorf("%w: output too short", ErrEncryptionFailed)
	}

	cipherBytes := sealed[:len(sealed)-tagSize]
	tagBytes := sealed[len(sealed)-tagSize:]

	return domain.Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(cipherBytes),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(tagBytes),
		Version:    version,
	}, nil
}
