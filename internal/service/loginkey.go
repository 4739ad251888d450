package service

import (
	"crypto/subtle"
	"encoding/json"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are stored alongside the hash so verification always uses the
// cost the hash was created with, even after a policy bump.
type Argon2Params struct {
	Time    uint32 `json:"t"` // iterations
	Memory  uint32 `json:"m"` // KiB
	Threads uint8  `json:"p"` // parallelism
	KeyLen  uint32 `json:"k"` // bytes
	SaltLen uint32 `json:"s"` // bytes
}

// LoginKeyHasher one-way hashes the client-derived login key before storage.
// The login key itself already came out of a slow, vault-id-salted KDF on the
// client, so the server-side pass mainly protects the stored value against
// database leaks.
type LoginKeyHasher struct {
	cur Argon2Params
}

func NewLoginKeyHasher() *LoginKeyHasher {
	return &LoginKeyHasher{
		cur: Argon2Params{
			Time:    1,
			Memory:  64 * 1024, // 64 MiB
			Threads: 1,
			KeyLen:  32,
			SaltLen: 16,
		},
	}
}

func (h *LoginKeyHasher) Hash(loginKey []byte) (hash, salt, paramsJSON []byte, err error) {
	salt = make([]byte, h.cur.SaltLen)
	if err = cryptocore.ReadRandom(salt); err != nil {
		return nil, nil, nil, err
	}
	hash = argon2.IDKey(loginKey, salt, h.cur.Time, h.cur.Memory, h.cur.Threads, h.cur.KeyLen)
	paramsJSON, err = json.Marshal(h.cur)
	if err != nil {
		return nil, nil, nil, err
	}
	return hash, salt, paramsJSON, nil
}

func (h *LoginKeyHasher) Verify(loginKey []byte, v *domain.Vault) bool {
	var stored Argon2Params
	if err := json.Unmarshal(v.LoginKeyParams, &stored); err != nil {
		return false
	}
	calculated := argon2.IDKey(loginKey, v.LoginKeySalt, stored.Time, stored.Memory, stored.Threads, stored.KeyLen)
	return subtle.ConstantTimeCompare(calculated, v.HashedLoginKey) == 1
}
