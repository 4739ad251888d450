package domain

import "time"

// Vault is a registered identity. The identity fields are immutable after
// registration; only the settings block may change, and only via the owner.
// The server never sees the vault private key: EncryptedVaultKey is an opaque
// client-side-encrypted blob, and HashedLoginKey is a one-way hash of the
// client-derived login key.
type Vault struct {
	ID                VaultID   `gorm:"type:uuid;primaryKey"`
	Name              string    `gorm:"type:text;uniqueIndex:ux_vaults_name_domain,priority:1;not null"`
	Domain            string    `gorm:"type:text;uniqueIndex:ux_vaults_name_domain,priority:2;not null"`
	VaultPubKey       string    `gorm:"type:text;not null"` // hex, 33-byte compressed secp256k1 point
	HashedLoginKey    []byte    `gorm:"type:bytea;not null"`
	LoginKeySalt      []byte    `gorm:"type:bytea;not null"`
	LoginKeyParams    []byte    `gorm:"type:jsonb;not null"`
	EncryptedVaultKey []byte    `gorm:"type:bytea;not null"`
	MinDifficulty     *uint32   `gorm:"type:integer"` // messaging difficulty override, nil = system default
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Vault) TableName() string { return "vaults" }

func (v *Vault) Address() Address { return Address{Name: v.Name, Domain: v.Domain} }
