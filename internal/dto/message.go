package dto

import "time"

type SendMessageRequest struct {
	SenderAddress    string `json:"senderAddress"`
	RecipientAddress string `json:"recipientAddress"`
	SenderPubKey     string `json:"senderPubKey"`    // hex, sender engagement key
	RecipientPubKey  string `json:"recipientPubKey"` // hex, recipient engagement key
	PowChallengeID   string `json:"powChallengeId"`
	EncryptedContent []byte `json:"encryptedContent"`
}

type SendMessageResponse struct {
	MessageID      string `json:"messageId"`
	ChannelID      string `json:"channelId"`
	OrderInChannel int64  `json:"orderInChannel"`
}

type Channel struct {
	ChannelID           string    `json:"channelId"`
	CounterpartyAddress string    `json:"counterpartyAddress"`
	Status              string    `json:"status"`
	MinDifficulty       *uint32   `json:"minDifficulty,omitempty"`
	SecretID            string    `json:"secretId"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type GetChannelsResponse struct {
	Channels []Channel `json:"channels"`
}

type GetChannelMessagesRequest struct {
	ChannelID  string `json:"channelId"`
	AfterOrder int64  `json:"afterOrder,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type Message struct {
	MessageID        string    `json:"messageId"`
	SenderAddress    string    `json:"senderAddress"`
	OrderInChannel   int64     `json:"orderInChannel"`
	EncryptedContent []byte    `json:"encryptedContent"`
	SenderPubKey     string    `json:"senderPubKey"`
	RecipientPubKey  string    `json:"recipientPubKey"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}

type GetChannelMessagesResponse struct {
	ChannelID string    `json:"channelId"`
	Messages  []Message `json:"messages"`
}

type UpdateChannelMinDifficultyRequest struct {
	ChannelID     string  `json:"channelId"`
	MinDifficulty *uint32 `json:"minDifficulty"` // nil clears the override
}

type UpdateChannelMinDifficultyResponse struct {
	ChannelID     string  `json:"channelId"`
	MinDifficulty *uint32 `json:"minDifficulty,omitempty"`
}

type MarkMessagesReadRequest struct {
	ChannelID  string   `json:"channelId"`
	MessageIDs []string `json:"messageIds"`
}

type MarkMessagesReadResponse struct {
	Updated int64 `json:"updated"`
}
