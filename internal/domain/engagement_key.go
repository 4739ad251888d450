package domain

import "time"

type KeyPurpose string

const (
	PurposeSend    KeyPurpose = "send"
	PurposeReceive KeyPurpose = "receive"
	PurposeManual  KeyPurpose = "manual"
)

func (p KeyPurpose) Valid() bool {
	switch p {
	case PurposeSend, PurposeReceive, PurposeManual:
		return true
	}
	return false
}

// EngagementKey is a one-time-use public key derived for a single
// conversation. EngagementPubKey = vault point + derivation point; the
// derivation private scalar is never stored, only the material needed to
// recompute it (DBEntropy plus the indexed server entropy). Rows are never
// deleted so historical keys stay re-derivable.
type EngagementKey struct {
	ID                  EngagementKeyID `gorm:"type:uuid;primaryKey"`
	VaultID             VaultID         `gorm:"type:uuid;not null;index;uniqueIndex:ux_engagement_keys_identity,priority:1"`
	Purpose             KeyPurpose      `gorm:"type:text;not null;uniqueIndex:ux_engagement_keys_identity,priority:2"`
	CounterpartyAddress string          `gorm:"type:text;not null;default:'';uniqueIndex:ux_engagement_keys_identity,priority:3"`
	CounterpartyPubKey  string          `gorm:"type:text;not null;default:'';uniqueIndex:ux_engagement_keys_identity,priority:4"` // hex
	DBEntropy           []byte          `gorm:"type:bytea;not null"`
	DBEntropyHash       []byte          `gorm:"type:bytea;not null"`
	ServerEntropyIndex  int             `gorm:"not null"`
	DerivationPubKey    string          `gorm:"type:text;not null"`       // hex
	EngagementPubKey    string          `gorm:"type:text;not null;index"` // hex
	IsUsed              bool            `gorm:"not null;default:false"`
	CreatedAt           time.Time       `gorm:"not null"`
}

func (EngagementKey) TableName() string { return "engagement_keys" }
