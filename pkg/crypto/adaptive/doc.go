// Package adaptive seals opaque values with an AEAD chosen for the host.
//
// AES-256-GCM is used where the CPU accelerates AES (amd64, arm64) and
// XChaCha20-Poly1305 elsewhere. Every sealed value starts with a one-byte
// algorithm tag followed by the nonce, so a reader always knows which
// construction produced it:
//
//	+-----+-----------+--------------------+
//	| alg |   nonce   | ciphertext || tag  |
//	+-----+-----------+--------------------+
//
// Usage:
//
//	key, err := adaptive.ParseKey(cfg.EncryptionKey)
//	s, err := adaptive.New(key)
//	sealed, err := s.Seal(plaintext, []byte("Sessions"))
//	plaintext, err := s.Open(sealed, []byte("Sessions"))
package adaptive
