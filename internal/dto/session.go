package dto

import "time"

type LoginRequest struct {
	VaultID  string `json:"vaultId"`
	LoginKey string `json:"loginKey"` // hex
	DeviceID string `json:"deviceId"`
}

type LoginResponse struct {
	SessionToken string    `json:"sessionToken"` // 64 hex chars, returned exactly once
	ExpiresAt    time.Time `json:"expiresAt"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"loggedOut"`
}
