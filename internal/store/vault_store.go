package store

import (
	"context"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VaultStore struct{ db *gorm.DB }

func (s *Store) Vaults() *VaultStore { return &VaultStore{db: s.DB} }

func (v *VaultStore) Create(ctx context.Context, vault *domain.Vault) error {
	if vault.ID == uuid.Nil {
		vault.ID = uuid.New()
	}
	return v.db.WithContext(ctx).Create(vault).Error
}

func (v *VaultStore) GetByID(ctx context.Context, id domain.VaultID) (*domain.Vault, error) {
	var vault domain.Vault
	if err := v.db.WithContext(ctx).First(&vault, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &vault, nil
}

func (v *VaultStore) GetByAddress(ctx context.Context, addr domain.Address) (*domain.Vault, error) {
	var vault domain.Vault
	if err := v.db.WithContext(ctx).First(&vault, "name = ? AND domain = ?", addr.Name, addr.Domain).Error; err != nil {
		return nil, notFound(err)
	}
	return &vault, nil
}

func (v *VaultStore) UpdateMinDifficulty(ctx context.Context, id domain.VaultID, min *uint32) error {
	return v.db.WithContext(ctx).Model(&domain.Vault{}).
		Where("id = ?", id).
		Update("min_difficulty", min).Error
}
