package service

import (
	"context"
	"encoding/hex"
	"errors"
	"regexp"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/observability/metrics"
	"keypears/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var vaultNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

type VaultService struct {
	store  *store.Store
	hasher *LoginKeyHasher
	domain string
}

func NewVaultService(st *store.Store, hasher *LoginKeyHasher, ownDomain string) *VaultService {
	return &VaultService{store: st, hasher: hasher, domain: ownDomain}
}

func (s *VaultService) CheckNameAvailability(ctx context.Context, name string) (*dto.CheckNameAvailabilityResponse, error) {
	if !vaultNameRe.MatchString(name) {
		return nil, domain.BadRequest("invalid vault name %q", name)
	}
	_, err := s.store.Vaults().GetByAddress(ctx, domain.Address{Name: name, Domain: s.domain})
	switch {
	case err == nil:
		return &dto.CheckNameAvailabilityResponse{Name: name, Available: false}, nil
	case errors.Is(err, store.ErrRecordNotFound):
		return &dto.CheckNameAvailabilityResponse{Name: name, Available: true}, nil
	default:
		return nil, err
	}
}

func (s *VaultService) Register(ctx context.Context, req dto.RegisterVaultRequest) (*dto.RegisterVaultResponse, error) {
	result := "failure"
	defer func() { metrics.VaultRegistrationsTotal.WithLabelValues(result).Inc() }()

	if !vaultNameRe.MatchString(req.Name) {
		return nil, domain.BadRequest("invalid vault name %q", req.Name)
	}
	if _, err := cryptocore.ParsePubKeyHex(req.VaultPubKey); err != nil {
		return nil, domain.BadRequest("invalid vault public key")
	}
	loginKey, err := hex.DecodeString(req.LoginKey)
	if err != nil || len(loginKey) < 32 {
		return nil, domain.BadRequest("login key must be at least 32 hex-encoded bytes")
	}
	if len(req.EncryptedVaultKey) == 0 {
		return nil, domain.BadRequest("missing encrypted vault key")
	}
	if req.MinDifficulty != nil && *req.MinDifficulty > 255 {
		return nil, domain.BadRequest("minimum difficulty out of range")
	}

	hash, salt, paramsJSON, err := s.hasher.Hash(loginKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v := &domain.Vault{
		ID:                uuid.New(),
		Name:              req.Name,
		Domain:            s.domain,
		VaultPubKey:       req.VaultPubKey,
		HashedLoginKey:    hash,
		LoginKeySalt:      salt,
		LoginKeyParams:    paramsJSON,
		EncryptedVaultKey: req.EncryptedVaultKey,
		MinDifficulty:     req.MinDifficulty,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		_, err := tx.Vaults().GetByAddress(ctx, v.Address())
		if err == nil {
			return domain.Conflict("name %q is taken", req.Name)
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		return tx.Vaults().Create(ctx, v)
	})
	if err != nil {
		// The unique (name, domain) index backstops registration races that
		// slip past the in-transaction lookup.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("name %q is taken", req.Name)
		}
		return nil, err
	}

	result = "success"
	return &dto.RegisterVaultResponse{
		VaultID: v.ID.String(),
		Address: v.Address().String(),
	}, nil
}
