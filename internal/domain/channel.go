package domain

import "time"

type ChannelStatus string

const (
	ChannelPending ChannelStatus = "pending"
	ChannelSaved   ChannelStatus = "saved"
	ChannelIgnored ChannelStatus = "ignored"
)

// ChannelView is one owner's side of a conversation. Direction-sensitive:
// A's view of B and B's view of A are separate rows.
type ChannelView struct {
	ID                  ChannelID     `gorm:"type:uuid;primaryKey"`
	OwnerVaultID        VaultID       `gorm:"type:uuid;not null;index"`
	OwnerAddress        string        `gorm:"type:text;not null;uniqueIndex:ux_channel_views_pair,priority:1"`
	CounterpartyAddress string        `gorm:"type:text;not null;uniqueIndex:ux_channel_views_pair,priority:2"`
	Status              ChannelStatus `gorm:"type:text;not null;default:'pending'"`
	MinDifficulty       *uint32       `gorm:"type:integer"` // per-channel override, nil = fall through
	SecretID            string        `gorm:"type:uuid;not null"`
	CreatedAt           time.Time     `gorm:"not null"`
	UpdatedAt           time.Time     `gorm:"not null"` // bumped on every new message
}

func (ChannelView) TableName() string { return "channel_views" }
