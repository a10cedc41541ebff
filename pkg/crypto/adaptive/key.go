package adaptive

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyInfo domain-separates derived keys from any other use of the secret.
var keyInfo = []byte("gridsession value sealing v1")

// ParseKey turns a configured secret into a KeySize key.
//
// A 64-character hex string or a base64 string decoding to exactly 32 bytes
// is used as-is. Anything else is treated as a passphrase and stretched with
// HKDF-SHA256.
func ParseKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("adaptive: empty key")
	}
	if len(secret) == hex.EncodedLen(KeySize) {
		if b, err := hex.DecodeString(secret); err == nil {
			return b, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(secret); err == nil && len(b) == KeySize {
		return b, nil
	}
	return DeriveKey([]byte(secret), nil)
}

// DeriveKey expands secret and an optional salt into a KeySize key.
func DeriveKey(secret, salt []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, keyInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}
