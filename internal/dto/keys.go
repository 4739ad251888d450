package dto

type GetEngagementKeyForSendingRequest struct {
	CounterpartyAddress string `json:"counterpartyAddress"`
}

type GetEngagementKeyForSendingResponse struct {
	EngagementKeyID  string `json:"engagementKeyId"`
	EngagementPubKey string `json:"engagementPubKey"` // hex
}

type GetDerivationPrivKeyRequest struct {
	EngagementKeyID string `json:"engagementKeyId"`
}

type GetDerivationPrivKeyResponse struct {
	EngagementKeyID   string `json:"engagementKeyId"`
	DerivationPrivKey string `json:"derivationPrivKey"` // hex scalar
	EngagementPubKey  string `json:"engagementPubKey"`  // hex, for owner-side verification
}
