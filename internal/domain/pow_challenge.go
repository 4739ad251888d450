package domain

import "time"

// PowChallenge transitions created → (expired | used), never back. The
// sender/recipient/key triple is the channel binding written at the moment
// the proof is consumed; sendMessage later checks it by reference instead of
// re-running proof-of-work.
type PowChallenge struct {
	ID           ChallengeID `gorm:"type:uuid;primaryKey"`
	Algorithm    string      `gorm:"type:text;not null"`
	Header       []byte      `gorm:"type:bytea;not null"`
	Target       []byte      `gorm:"type:bytea;not null"` // 32 bytes, big-endian threshold
	Difficulty   uint32      `gorm:"not null"`
	IsUsed       bool        `gorm:"not null;default:false"`
	SolvedHeader []byte      `gorm:"type:bytea"`
	SolvedHash   []byte      `gorm:"type:bytea"`

	SenderAddress    string `gorm:"type:text;not null;default:''"`
	RecipientAddress string `gorm:"type:text;not null;default:''"`
	SenderPubKey     string `gorm:"type:text;not null;default:''"` // hex

	CreatedAt  time.Time  `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	VerifiedAt *time.Time `gorm:"type:timestamptz"`
}

func (PowChallenge) TableName() string { return "pow_challenges" }
