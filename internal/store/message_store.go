package store

import (
	"context"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

// InsertNext assigns order_in_channel = max+1 and inserts. Must run inside a
// transaction that already holds the channel row lock (Channels().Touch does
// that), so the max-read and the insert cannot interleave between writers;
// the unique (channel, order) index backstops anything that slips through.
func (m *MessageStore) InsertNext(ctx context.Context, msg *domain.InboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	var maxOrder int64
	err := m.db.WithContext(ctx).Model(&domain.InboxMessage{}).
		Where("channel_view_id = ?", msg.ChannelViewID).
		Select("COALESCE(MAX(order_in_channel), 0)").
		Scan(&maxOrder).Error
	if err != nil {
		return err
	}
	msg.OrderInChannel = maxOrder + 1
	return m.db.WithContext(ctx).Create(msg).Error
}

func (m *MessageStore) ListByChannel(ctx context.Context, channelID domain.ChannelID, afterOrder int64, limit int) ([]domain.InboxMessage, error) {
	var msgs []domain.InboxMessage
	tx := m.db.WithContext(ctx).
		Where("channel_view_id = ? AND order_in_channel > ?", channelID, afterOrder).
		Order("order_in_channel ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead scopes the update to one channel so a caller can never flip
// messages in somebody else's conversation.
func (m *MessageStore) MarkRead(ctx context.Context, channelID domain.ChannelID, ids []domain.MessageID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := m.db.WithContext(ctx).Model(&domain.InboxMessage{}).
		Where("channel_view_id = ? AND id IN ?", channelID, ids).
		Update("is_read", true)
	return tx.RowsAffected, tx.Error
}
