package dto

import "time"

type GetPowChallengeRequest struct {
	Difficulty *uint32 `json:"difficulty,omitempty"` // nil = server picks the default
}

type GetPowChallengeResponse struct {
	ChallengeID string    `json:"challengeId"`
	Algorithm   string    `json:"algorithm"`
	Header      []byte    `json:"header"`
	Target      []byte    `json:"target"`
	Difficulty  uint32    `json:"difficulty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
