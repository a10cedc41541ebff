package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the only accepted key length.
const KeySize = 32

// Algorithm identifies the AEAD construction.
type Algorithm byte

const (
	AlgorithmAESGCM            Algorithm = 1
	AlgorithmXChaCha20Poly1305 Algorithm = 2
)

// String returns the algorithm's conventional name.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmAESGCM:
		return "aes-256-gcm"
	case AlgorithmXChaCha20Poly1305:
		return "xchacha20-poly1305"
	default:
		return fmt.Sprintf("unknown(%d)", byte(a))
	}
}

var (
	// ErrKeySize is returned for keys that are not KeySize bytes long.
	ErrKeySize = errors.New("adaptive: key must be 32 bytes")

	// ErrMalformed is returned when a sealed value is too short to be valid.
	ErrMalformed = errors.New("adaptive: malformed sealed value")

	// ErrAlgorithmMismatch is returned when a value was sealed with a
	// different algorithm than the Sealer uses.
	ErrAlgorithmMismatch = errors.New("adaptive: algorithm mismatch")
)

// Sealer performs authenticated encryption. It is safe for concurrent use.
type Sealer struct {
	alg  Algorithm
	aead cipher.AEAD
}

// New returns a Sealer using the preferred algorithm for this platform.
func New(key []byte) (*Sealer, error) {
	return NewWithAlgorithm(key, preferred())
}

// NewWithAlgorithm returns a Sealer for an explicit algorithm.
func NewWithAlgorithm(key []byte, alg Algorithm) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmXChaCha20Poly1305:
		aead, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("adaptive: unsupported algorithm %s", alg)
	}
	if err != nil {
		return nil, err
	}

	return &Sealer{alg: alg, aead: aead}, nil
}

// preferred reports AES-GCM on architectures where Go's AES is hardware
// accelerated.
func preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AlgorithmAESGCM
	default:
		return AlgorithmXChaCha20Poly1305
	}
}

// Algorithm returns the algorithm in use.
func (s *Sealer) Algorithm() Algorithm {
	return s.alg
}

// Overhead returns how many bytes Seal adds to a plaintext.
func (s *Sealer) Overhead() int {
	return 1 + s.aead.NonceSize() + s.aead.Overhead()
}

// Seal encrypts plaintext, binding it to additionalData.
func (s *Sealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	out := make([]byte, 1+ns, 1+ns+len(plaintext)+s.aead.Overhead())
	out[0] = byte(s.alg)
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("adaptive: read nonce: %w", err)
	}
	return s.aead.Seal(out, out[1:], plaintext, additionalData), nil
}

// Open decrypts a value produced by Seal with the same key and additionalData.
func (s *Sealer) Open(sealed, additionalData []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < 1+ns+s.aead.Overhead() {
		return nil, ErrMalformed
	}
	if Algorithm(sealed[0]) != s.alg {
		return nil, fmt.Errorf("%w: sealed with %s, have %s", ErrAlgorithmMismatch, Algorithm(sealed[0]), s.alg)
	}
	return s.aead.Open(nil, sealed[1:1+ns], sealed[1+ns:], additionalData)
}
