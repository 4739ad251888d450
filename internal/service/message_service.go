package service

import (
	"context"
	"errors"
	"time"

	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/observability/metrics"
	"keypears/internal/store"

	"github.com/google/uuid"
)

type MessageService struct {
	store     *store.Store
	ownDomain string
}

func NewMessageService(st *store.Store, ownDomain string) *MessageService {
	return &MessageService{store: st, ownDomain: ownDomain}
}

func messageReject(msg string, args ...any) error {
	metrics.MessagesEnqueuedTotal.WithLabelValues("rejected").Inc()
	return domain.BadRequest(msg, args...)
}

// SendMessage accepts an encrypted payload for a local recipient. The sender
// does not re-prove work here; instead the referenced challenge must already
// be spent and bound to exactly this (sender, recipient, sender key) triple,
// which ties every stored message back to one completed key exchange.
func (s *MessageService) SendMessage(ctx context.Context, req dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	recipient, err := domain.ParseAddress(req.RecipientAddress)
	if err != nil {
		return nil, err
	}
	if recipient.Domain != s.ownDomain {
		return nil, domain.BadRequest("not authoritative for domain %q", recipient.Domain)
	}
	sender, err := domain.ParseAddress(req.SenderAddress)
	if err != nil {
		return nil, err
	}
	if len(req.EncryptedContent) == 0 {
		return nil, domain.BadRequest("encrypted content is empty")
	}

	vault, err := s.store.Vaults().GetByAddress(ctx, recipient)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.NotFound("recipient not found")
		}
		return nil, err
	}

	challengeID, err := uuid.Parse(req.PowChallengeID)
	if err != nil {
		return nil, domain.BadRequest("invalid challenge id")
	}
	challenge, err := s.store.PowChallenges().GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, messageReject("challenge not found")
		}
		return nil, err
	}
	if !challenge.IsUsed {
		return nil, messageReject("challenge has not been spent on a key exchange")
	}
	if challenge.SenderAddress != sender.String() ||
		challenge.RecipientAddress != recipient.String() ||
		challenge.SenderPubKey != req.SenderPubKey {
		return nil, messageReject("challenge is bound to a different conversation")
	}

	// The recipient key on the envelope must be the receiving key this
	// server derived for that exchange, otherwise the recipient could never
	// decrypt what we store.
	receiveKey, err := s.store.EngagementKeys().FindByIdentity(ctx, vault.ID, domain.PurposeReceive, sender.String(), req.SenderPubKey)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, messageReject("no receiving key exists for this sender")
		}
		return nil, err
	}
	if receiveKey.EngagementPubKey != req.RecipientPubKey {
		return nil, messageReject("recipient key does not match the derived receiving key")
	}

	msg := &domain.InboxMessage{
		ID:               uuid.New(),
		SenderAddress:    sender.String(),
		EncryptedContent: req.EncryptedContent,
		SenderPubKey:     req.SenderPubKey,
		RecipientPubKey:  req.RecipientPubKey,
		PowChallengeID:   challenge.ID,
		CreatedAt:        time.Now().UTC(),
	}
	var channelID domain.ChannelID
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		ch, err := tx.Channels().GetOrCreate(ctx, vault.ID, recipient.String(), sender.String())
		if err != nil {
			return err
		}
		// Touch takes the channel row lock, serializing order assignment.
		if err := tx.Channels().Touch(ctx, ch.ID, msg.CreatedAt); err != nil {
			return err
		}
		msg.ChannelViewID = ch.ID
		channelID = ch.ID
		return tx.Messages().InsertNext(ctx, msg)
	})
	if err != nil {
		metrics.MessagesEnqueuedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := s.store.EngagementKeys().MarkUsed(ctx, receiveKey.ID); err != nil {
		return nil, err
	}

	metrics.MessagesEnqueuedTotal.WithLabelValues("accepted").Inc()
	return &dto.SendMessageResponse{
		MessageID:      msg.ID.String(),
		ChannelID:      channelID.String(),
		OrderInChannel: msg.OrderInChannel,
	}, nil
}

func (s *MessageService) GetChannels(ctx context.Context, vault *domain.Vault) (*dto.GetChannelsResponse, error) {
	chs, err := s.store.Channels().ListByOwner(ctx, vault.ID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Channel, 0, len(chs))
	for _, ch := range chs {
		out = append(out, dto.Channel{
			ChannelID:           ch.ID.String(),
			CounterpartyAddress: ch.CounterpartyAddress,
			Status:              string(ch.Status),
			MinDifficulty:       ch.MinDifficulty,
			SecretID:            ch.SecretID,
			CreatedAt:           ch.CreatedAt,
			UpdatedAt:           ch.UpdatedAt,
		})
	}
	return &dto.GetChannelsResponse{Channels: out}, nil
}

// ownedChannel loads a channel and enforces that the caller owns it. Every
// per-channel operation goes through here.
func (s *MessageService) ownedChannel(ctx context.Context, vault *domain.Vault, channelID string) (*domain.ChannelView, error) {
	id, err := uuid.Parse(channelID)
	if err != nil {
		return nil, domain.BadRequest("invalid channel id")
	}
	ch, err := s.store.Channels().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.NotFound("channel not found")
		}
		return nil, err
	}
	if ch.OwnerVaultID != vault.ID {
		return nil, domain.Forbidden("channel belongs to another vault")
	}
	return ch, nil
}

func (s *MessageService) GetChannelMessages(ctx context.Context, vault *domain.Vault, req dto.GetChannelMessagesRequest) (*dto.GetChannelMessagesResponse, error) {
	ch, err := s.ownedChannel(ctx, vault, req.ChannelID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages().ListByChannel(ctx, ch.ID, req.AfterOrder, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.Message{
			MessageID:        m.ID.String(),
			SenderAddress:    m.SenderAddress,
			OrderInChannel:   m.OrderInChannel,
			EncryptedContent: m.EncryptedContent,
			SenderPubKey:     m.SenderPubKey,
			RecipientPubKey:  m.RecipientPubKey,
			IsRead:           m.IsRead,
			CreatedAt:        m.CreatedAt,
		})
	}
	return &dto.GetChannelMessagesResponse{ChannelID: ch.ID.String(), Messages: out}, nil
}

func (s *MessageService) UpdateChannelMinDifficulty(ctx context.Context, vault *domain.Vault, req dto.UpdateChannelMinDifficultyRequest) (*dto.UpdateChannelMinDifficultyResponse, error) {
	if req.MinDifficulty != nil && *req.MinDifficulty > 255 {
		return nil, domain.BadRequest("difficulty %d exceeds maximum 255", *req.MinDifficulty)
	}
	ch, err := s.ownedChannel(ctx, vault, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Channels().UpdateMinDifficulty(ctx, ch.ID, req.MinDifficulty); err != nil {
		return nil, err
	}
	return &dto.UpdateChannelMinDifficultyResponse{
		ChannelID:     ch.ID.String(),
		MinDifficulty: req.MinDifficulty,
	}, nil
}

func (s *MessageService) MarkMessagesRead(ctx context.Context, vault *domain.Vault, req dto.MarkMessagesReadRequest) (*dto.MarkMessagesReadResponse, error) {
	ch, err := s.ownedChannel(ctx, vault, req.ChannelID)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.MessageID, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.BadRequest("invalid message id %q", raw)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return &dto.MarkMessagesReadResponse{Updated: 0}, nil
	}
	n, err := s.store.Messages().MarkRead(ctx, ch.ID, ids)
	if err != nil {
		return nil, err
	}
	return &dto.MarkMessagesReadResponse{Updated: n}, nil
}
