package domain

import "time"

// DeviceSession stores only a one-way hash of the session token; the raw
// token leaves the server exactly once, in the login response.
type DeviceSession struct {
	ID                 SessionID `gorm:"type:uuid;primaryKey"`
	VaultID            VaultID   `gorm:"type:uuid;not null;index"`
	DeviceID           string    `gorm:"type:text;not null"`
	HashedSessionToken string    `gorm:"type:text;not null;uniqueIndex:ux_device_sessions_token"` // hex
	ExpiresAt          time.Time `gorm:"not null"`
	LastActiveAt       time.Time `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null"`
}

func (DeviceSession) TableName() string { return "device_sessions" }
