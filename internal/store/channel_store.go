package store

import (
	"context"
	"time"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelStore struct{ db *gorm.DB }

func (s *Store) Channels() *ChannelStore { return &ChannelStore{db: s.DB} }

// GetOrCreate returns the owner's view of the conversation with the
// counterparty, creating it lazily on first contact. Call inside WithTx when
// the result feeds further writes; the unique (owner, counterparty) index
// backstops races between concurrent first messages.
func (c *ChannelStore) GetOrCreate(ctx context.Context, ownerVaultID domain.VaultID, ownerAddress, counterpartyAddress string) (*domain.ChannelView, error) {
	var ch domain.ChannelView
	err := c.db.WithContext(ctx).First(&ch,
		"owner_address = ? AND counterparty_address = ?", ownerAddress, counterpartyAddress).Error
	if err == nil {
		return &ch, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	ch = domain.ChannelView{
		ID:                  uuid.New(),
		OwnerVaultID:        ownerVaultID,
		OwnerAddress:        ownerAddress,
		CounterpartyAddress: counterpartyAddress,
		Status:              domain.ChannelPending,
		SecretID:            uuid.NewString(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := c.db.WithContext(ctx).Create(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// FindByPair is the read-only sibling of GetOrCreate.
func (c *ChannelStore) FindByPair(ctx context.Context, ownerAddress, counterpartyAddress string) (*domain.ChannelView, error) {
	var ch domain.ChannelView
	err := c.db.WithContext(ctx).First(&ch,
		"owner_address = ? AND counterparty_address = ?", ownerAddress, counterpartyAddress).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ch, nil
}

func (c *ChannelStore) GetByID(ctx context.Context, id domain.ChannelID) (*domain.ChannelView, error) {
	var ch domain.ChannelView
	if err := c.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ch, nil
}

func (c *ChannelStore) ListByOwner(ctx context.Context, ownerVaultID domain.VaultID) ([]domain.ChannelView, error) {
	var chs []domain.ChannelView
	err := c.db.WithContext(ctx).
		Where("owner_vault_id = ?", ownerVaultID).
		Order("updated_at DESC").
		Find(&chs).Error
	if err != nil {
		return nil, err
	}
	return chs, nil
}

func (c *ChannelStore) UpdateMinDifficulty(ctx context.Context, id domain.ChannelID, min *uint32) error {
	return c.db.WithContext(ctx).Model(&domain.ChannelView{}).
		Where("id = ?", id).
		Update("min_difficulty", min).Error
}

// Touch bumps updated_at. Inside a transaction this also takes the channel
// row lock, which serializes concurrent message inserts for the channel.
func (c *ChannelStore) Touch(ctx context.Context, id domain.ChannelID, at time.Time) error {
	return c.db.WithContext(ctx).Model(&domain.ChannelView{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}
