package domain

import "time"

// InboxMessage rows are append-only apart from IsRead. OrderInChannel is
// dense and 1-based per channel, assigned as max+1 inside the inserting
// transaction.
type InboxMessage struct {
	ID               MessageID   `gorm:"type:uuid;primaryKey"`
	ChannelViewID    ChannelID   `gorm:"type:uuid;not null;uniqueIndex:ux_inbox_messages_order,priority:1"`
	OrderInChannel   int64       `gorm:"not null;uniqueIndex:ux_inbox_messages_order,priority:2"`
	SenderAddress    string      `gorm:"type:text;not null"`
	EncryptedContent []byte      `gorm:"type:bytea;not null"`
	SenderPubKey     string      `gorm:"type:text;not null"` // hex, sender engagement key
	RecipientPubKey  string      `gorm:"type:text;not null"` // hex, recipient engagement key
	PowChallengeID   ChallengeID `gorm:"type:uuid;not null"`
	IsRead           bool        `gorm:"not null;default:false"`
	CreatedAt        time.Time   `gorm:"not null"`
}

func (InboxMessage) TableName() string { return "inbox_messages" }
