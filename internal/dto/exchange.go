package dto

// GetCounterpartyEngagementKeyRequest is the key-exchange entry point: a
// remote sender presents a solved proof-of-work plus a signature over the
// solution hash, and asks this server for the recipient's receiving key.
type GetCounterpartyEngagementKeyRequest struct {
	RecipientAddress string `json:"recipientAddress"`
	SenderAddress    string `json:"senderAddress"`
	SenderPubKey     string `json:"senderPubKey"` // hex, sender engagement key
	PowChallengeID   string `json:"powChallengeId"`
	SolvedHeader     []byte `json:"solvedHeader"`
	SolvedHash       []byte `json:"solvedHash"`
	Signature        string `json:"signature"` // hex DER, over SolvedHash, by SenderPubKey
}

type GetCounterpartyEngagementKeyResponse struct {
	EngagementKeyID    string `json:"engagementKeyId"`
	EngagementPubKey   string `json:"engagementPubKey"` // hex
	RequiredDifficulty uint32 `json:"requiredDifficulty"`
}

type VerifyEngagementKeyOwnershipRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"` // hex
}

type VerifyEngagementKeyOwnershipResponse struct {
	Valid bool `json:"valid"`
}
