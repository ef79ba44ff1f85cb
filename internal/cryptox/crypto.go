// Package cryptox implements the client-side encryption layer: key
// derivation from the user's password and authenticated field-level
// encryption. The key never leaves the client; the server only ever sees
// the (ciphertext, iv) pairs produced here.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrDecryptFailed is returned for any decryption failure: malformed
// ciphertext, a wrong-length IV, or an authentication mismatch (wrong key or
// tampering). Callers must treat it as "key currently unavailable/wrong" and
// degrade the affected field to a placeholder, not as a fatal error.
var ErrDecryptFailed = errors.New("decryption failed")

const (
	keyLen   = 32
	saltLen  = 16
	nonceLen = 12
)

// DeriveKey derives a 256-bit symmetric key from password and salt using
// argon2id. Same inputs always yield the same key. The salt is server-issued
// and not secret.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 3, 64*1024, 4, keyLen)
}

// MakeVerifier returns a SHA-256 digest of the key, safe to persist locally
// for offline password checks without exposing the key itself.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// NewSalt returns a fresh random per-user salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(saltLen)
}

// EncryptedString is a field value as stored and transmitted: base64
// AES-GCM ciphertext plus the base64 IV it was sealed with.
type EncryptedString struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
}

// IsZero reports whether the value holds no ciphertext at all.
func (e EncryptedString) IsZero() bool {
	return e.Ciphertext == "" && e.IV == ""
}

// EncryptString seals plaintext with AES-GCM under key, generating a fresh
// random 12-byte IV per call so equal plaintexts never produce equal
// ciphertexts.
func EncryptString(key []byte, plaintext string) (EncryptedString, error) {
	aead, err := newGCM(key)
	if err != nil {
		return EncryptedString{}, err
	}

	iv := common.GenerateRandByteArray(nonceLen)
	ct := aead.Seal(nil, iv, []byte(plaintext), nil)

	return EncryptedString{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// DecryptString opens v with key. All failure modes surface as
// ErrDecryptFailed so callers cannot accidentally treat garbage as valid
// plaintext.
func DecryptString(key []byte, v EncryptedString) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(v.IV)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv encoding", ErrDecryptFailed)
	}
	if len(iv) != nonceLen {
		return "", fmt.Errorf("%w: iv length %d", ErrDecryptFailed, len(iv))
	}

	ct, err := base64.StdEncoding.DecodeString(v.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecryptFailed)
	}

	plaintext, err := aead.Open(nil, iv, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
