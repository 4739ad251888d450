package dto

type CheckNameAvailabilityRequest struct {
	Name string `json:"name"`
}

type CheckNameAvailabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type RegisterVaultRequest struct {
	Name              string  `json:"name"`
	VaultPubKey       string  `json:"vaultPubKey"` // hex, 33-byte compressed point
	LoginKey          string  `json:"loginKey"`    // hex, client-side slow-KDF output
	EncryptedVaultKey []byte  `json:"encryptedVaultKey"`
	MinDifficulty     *uint32 `json:"minDifficulty,omitempty"`
}

type RegisterVaultResponse struct {
	VaultID string `json:"vaultId"`
	Address string `json:"address"`
}
