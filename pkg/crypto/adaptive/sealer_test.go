package adaptive

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
)

var testKey = func() []byte {
	k := make([]byte, KeySize)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}()

func TestNew(t *testing.T) {
	s, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a := s.Algorithm(); a != AlgorithmAESGCM && a != AlgorithmXChaCha20Poly1305 {
		t.Errorf("New() picked unknown algorithm %s", a)
	}
}

func TestNewWithAlgorithm_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
		alg  Algorithm
	}{
		{"short key", make([]byte, 16), AlgorithmAESGCM},
		{"long key", make([]byte, 33), AlgorithmXChaCha20Poly1305},
		{"unknown algorithm", testKey, Algorithm(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWithAlgorithm(tt.key, tt.alg); err == nil {
				t.Error("NewWithAlgorithm() should return error")
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmXChaCha20Poly1305} {
		t.Run(alg.String(), func(t *testing.T) {
			s, err := NewWithAlgorithm(testKey, alg)
			if err != nil {
				t.Fatalf("NewWithAlgorithm() error = %v", err)
			}

			tests := []struct {
				name      string
				plaintext []byte
				aad       []byte
			}{
				{"Empty", []byte{}, nil},
				{"Simple", []byte(`{"views":1}`), []byte("Sessions")},
				{"Large", bytes.Repeat([]byte("A"), 4096), nil},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					sealed, err := s.Seal(tt.plaintext, tt.aad)
					if err != nil {
						t.Fatalf("Seal() error = %v", err)
					}
					if len(sealed) != len(tt.plaintext)+s.Overhead() {
						t.Errorf("sealed length = %d, want %d", len(sealed), len(tt.plaintext)+s.Overhead())
					}
					if sealed[0] != byte(alg) {
						t.Errorf("algorithm tag = %d, want %d", sealed[0], alg)
					}

					got, err := s.Open(sealed, tt.aad)
					if err != nil {
						t.Fatalf("Open() error = %v", err)
					}
					if !bytes.Equal(got, tt.plaintext) {
						t.Errorf("Open() = %q, want %q", got, tt.plaintext)
					}
				})
			}
		})
	}
}

func TestOpen_Rejects(t *testing.T) {
	s, _ := NewWithAlgorithm(testKey, AlgorithmXChaCha20Poly1305)
	sealed, err := s.Seal([]byte("secret"), []byte("Sessions"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	t.Run("wrong aad", func(t *testing.T) {
		if _, err := s.Open(sealed, []byte("Profiles")); err == nil {
			t.Error("Open() with different aad should fail")
		}
	})

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0xFF
		if _, err := s.Open(bad, []byte("Sessions")); err == nil {
			t.Error("Open() of tampered value should fail")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := s.Open(sealed[:5], []byte("Sessions")); !errors.Is(err, ErrMalformed) {
			t.Errorf("Open() error = %v, want ErrMalformed", err)
		}
	})

	t.Run("other algorithm", func(t *testing.T) {
		other, _ := NewWithAlgorithm(testKey, AlgorithmAESGCM)
		if _, err := other.Open(sealed, []byte("Sessions")); !errors.Is(err, ErrAlgorithmMismatch) {
			t.Errorf("Open() error = %v, want ErrAlgorithmMismatch", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		k := append([]byte(nil), testKey...)
		k[0] ^= 1
		other, _ := NewWithAlgorithm(k, AlgorithmXChaCha20Poly1305)
		if _, err := other.Open(sealed, []byte("Sessions")); err == nil {
			t.Error("Open() with wrong key should fail")
		}
	})
}

func TestSeal_UniqueNonces(t *testing.T) {
	s, _ := New(testKey)
	a, _ := s.Seal([]byte("x"), nil)
	b, _ := s.Seal([]byte("x"), nil)
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext should differ")
	}
}

func TestParseKey(t *testing.T) {
	derived, err := DeriveKey([]byte("correct horse battery staple"), nil)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		want    []byte
		wantErr bool
	}{
		{"hex", hex.EncodeToString(testKey), testKey, false},
		{"base64", base64.StdEncoding.EncodeToString(testKey), testKey, false},
		{"passphrase", "correct horse battery staple", derived, false},
		{"empty", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ParseKey() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a, _ := DeriveKey([]byte("pw"), []byte("salt"))
	b, _ := DeriveKey([]byte("pw"), []byte("salt"))
	c, _ := DeriveKey([]byte("pw"), []byte("pepper"))
	if !bytes.Equal(a, b) {
		t.Error("DeriveKey() should be deterministic")
	}
	if bytes.Equal(a, c) {
		t.Error("DeriveKey() should depend on salt")
	}
	if len(a) != KeySize {
		t.Errorf("len = %d, want %d", len(a), KeySize)
	}
}
