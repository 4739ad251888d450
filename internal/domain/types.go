package domain

import "github.com/google/uuid"

type VaultID = uuid.UUID
type EngagementKeyID = uuid.UUID
type ChallengeID = uuid.UUID
type ChannelID = uuid.UUID
type MessageID = uuid.UUID
type SessionID = uuid.UUID
