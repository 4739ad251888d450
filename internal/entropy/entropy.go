// Package entropy holds the server-wide derivation entropy: an append-only,
// 1-indexed sequence of 32-byte secrets loaded once at process start. Old
// indices must stay available forever so historical engagement keys can be
// re-derived; rotation means appending a new secret to the environment value,
// never replacing earlier ones.
package entropy

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const SecretSize = 32

type Store struct {
	secrets [][SecretSize]byte
}

// Parse builds a Store from a comma-separated list of hex-encoded 32-byte
// secrets. Index 1 is the first entry; the last entry is current.
func Parse(raw string) (*Store, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) == 1 && parts[0] == "" {
		return nil, fmt.Errorf("entropy: no secrets configured")
	}
	s := &Store{secrets: make([][SecretSize]byte, 0, len(parts))}
	for i, p := range parts {
		b, err := hex.DecodeString(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("entropy: secret %d: %w", i+1, err)
		}
		if len(b) != SecretSize {
			return nil, fmt.Errorf("entropy: secret %d: expected %d bytes, got %d", i+1, SecretSize, len(b))
		}
		var sec [SecretSize]byte
		copy(sec[:], b)
		s.secrets = append(s.secrets, sec)
	}
	return s, nil
}

// Current returns the newest secret and its 1-based index.
func (s *Store) Current() (int, [SecretSize]byte) {
	return len(s.secrets), s.secrets[len(s.secrets)-1]
}

// Lookup returns the secret at a 1-based index.
func (s *Store) Lookup(index int) ([SecretSize]byte, error) {
	if index < 1 || index > len(s.secrets) {
		return [SecretSize]byte{}, fmt.Errorf("entropy: no secret at index %d", index)
	}
	return s.secrets[index-1], nil
}

func (s *Store) Len() int { return len(s.secrets) }
