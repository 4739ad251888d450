package store

import (
	"context"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EngagementKeyStore struct{ db *gorm.DB }

func (s *Store) EngagementKeys() *EngagementKeyStore { return &EngagementKeyStore{db: s.DB} }

func (e *EngagementKeyStore) Create(ctx context.Context, key *domain.EngagementKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	return e.db.WithContext(ctx).Create(key).Error
}

func (e *EngagementKeyStore) GetByID(ctx context.Context, id domain.EngagementKeyID) (*domain.EngagementKey, error) {
	var key domain.EngagementKey
	if err := e.db.WithContext(ctx).First(&key, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

// FindByIdentity is the lookup half of the idempotent lookup-or-create:
// (vault, purpose, counterparty address, counterparty key) identifies one key.
func (e *EngagementKeyStore) FindByIdentity(ctx context.Context, vaultID domain.VaultID, purpose domain.KeyPurpose, counterpartyAddress, counterpartyPubKey string) (*domain.EngagementKey, error) {
	var key domain.EngagementKey
	err := e.db.WithContext(ctx).First(&key,
		"vault_id = ? AND purpose = ? AND counterparty_address = ? AND counterparty_pub_key = ?",
		vaultID, purpose, counterpartyAddress, counterpartyPubKey).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

// FindByVaultAndPubKey resolves ownership claims: does this vault have a key
// whose engagement public key matches.
func (e *EngagementKeyStore) FindByVaultAndPubKey(ctx context.Context, vaultID domain.VaultID, engagementPubKey string) (*domain.EngagementKey, error) {
	var key domain.EngagementKey
	err := e.db.WithContext(ctx).First(&key,
		"vault_id = ? AND engagement_pub_key = ?", vaultID, engagementPubKey).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

func (e *EngagementKeyStore) MarkUsed(ctx context.Context, id domain.EngagementKeyID) error {
	return e.db.WithContext(ctx).Model(&domain.EngagementKey{}).
		Where("id = ?", id).
		Update("is_used", true).Error
}
