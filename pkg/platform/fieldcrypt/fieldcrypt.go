// Package fieldcrypt encrypts individual PII columns at the repository boundary.
//
// Ciphertexts are XChaCha20-Poly1305 sealed, prefixed with a version tag and
// base64 encoded so they fit in text columns:
//
//	v1:<base64(nonce || ciphertext || tag)>
//
// Values without the prefix are treated as legacy plaintext and returned as-is,
// which lets rows written before encryption was enabled stay readable.
package fieldcrypt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const versionPrefix = "v1:"

// hkdfInfo scopes derived keys so the same application secret can feed other
// derivations without key reuse.
const hkdfInfo = "supplierhub contact field encryption v1"

var (
	ErrKeyRequired = errors.New("fieldcrypt: encryption key is required")
	ErrMalformed   = errors.New("fieldcrypt: malformed ciphertext")
	ErrDecrypt     = errors.New("fieldcrypt: decryption failed")
)

// Cipher encrypts and decrypts single string values.
type Cipher struct {
	aead interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// New derives a 256-bit key from secret via HKDF-SHA256.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrKeyRequired
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("fieldcrypt: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: init cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext. The empty string stays empty so nullable columns
// remain distinguishable from encrypted empty values.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(value, versionPrefix)
	if !ok {
		return value, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformed
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+chacha20poly1305.Overhead {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// IsEncrypted reports whether value carries the ciphertext prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, versionPrefix)
}
