package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/entropy"
	"keypears/internal/observability/metrics"
	"keypears/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"lukechampine.com/blake3"
)

// KeyService owns engagement-key derivation. The server-side half of the
// scheme: it can mint unlinkable public keys for a vault and later reveal the
// derivation scalar to the owner, but it never holds enough to produce a
// usable engagement private key on its own.
type KeyService struct {
	store   *store.Store
	entropy *entropy.Store
	domain  string
}

func NewKeyService(st *store.Store, ent *entropy.Store, ownDomain string) *KeyService {
	return &KeyService{store: st, entropy: ent, domain: ownDomain}
}

// DeriveEngagementKey performs the idempotent lookup-or-create. For send and
// receive purposes the (vault, purpose, counterparty) identity pins the key,
// which is what stops resubmitted requests from allocating unbounded keys.
// Manual keys are intentionally non-idempotent; each gets a unique
// discriminator in place of the counterparty key.
func (s *KeyService) DeriveEngagementKey(ctx context.Context, vault *domain.Vault, purpose domain.KeyPurpose, counterpartyAddress, counterpartyPubKey string) (*domain.EngagementKey, error) {
	if !purpose.Valid() {
		return nil, domain.BadRequest("invalid key purpose %q", purpose)
	}
	if purpose != domain.PurposeManual && counterpartyAddress == "" {
		return nil, domain.BadRequest("counterparty address required for %s keys", purpose)
	}

	discriminator := counterpartyPubKey
	if purpose == domain.PurposeManual && counterpartyPubKey == "" {
		discriminator = uuid.NewString()
	}

	var out *domain.EngagementKey
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		existing, err := tx.EngagementKeys().FindByIdentity(ctx, vault.ID, purpose, counterpartyAddress, discriminator)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		key, err := s.mint(vault, purpose, counterpartyAddress, discriminator)
		if err != nil {
			return err
		}
		if err := tx.EngagementKeys().Create(ctx, key); err != nil {
			return err
		}
		metrics.EngagementKeysDerivedTotal.WithLabelValues(string(purpose)).Inc()
		out = key
		return nil
	})
	if err != nil {
		// A concurrent caller may have created the identical key between our
		// lookup and insert; the unique index turns that into a clean re-read.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.store.EngagementKeys().FindByIdentity(ctx, vault.ID, purpose, counterpartyAddress, discriminator)
		}
		return nil, err
	}
	return out, nil
}

// mint runs the actual derivation: fresh salt, current server entropy,
// scalar via keyed hash, then point addition onto the vault key. The scalar
// itself is dropped on the floor here; only its public point is kept.
func (s *KeyService) mint(vault *domain.Vault, purpose domain.KeyPurpose, counterpartyAddress, counterpartyPubKey string) (*domain.EngagementKey, error) {
	vaultPub, err := cryptocore.ParsePubKeyHex(vault.VaultPubKey)
	if err != nil {
		return nil, domain.BadRequest("vault public key is corrupt")
	}

	dbEntropy := make([]byte, 32)
	if err := cryptocore.ReadRandom(dbEntropy); err != nil {
		return nil, err
	}
	entropyHash := blake3.Sum256(dbEntropy)

	idx, serverEntropy := s.entropy.Current()
	scalar, err := cryptocore.DerivationScalar(serverEntropy[:], dbEntropy)
	if err != nil {
		return nil, err
	}
	derivationPub := cryptocore.ScalarPubKey(scalar)

	engagementPub, err := cryptocore.AddPubKeys(vaultPub, derivationPub)
	if err != nil {
		return nil, err
	}

	return &domain.EngagementKey{
		ID:                  uuid.New(),
		VaultID:             vault.ID,
		Purpose:             purpose,
		CounterpartyAddress: counterpartyAddress,
		CounterpartyPubKey:  counterpartyPubKey,
		DBEntropy:           dbEntropy,
		DBEntropyHash:       entropyHash[:],
		ServerEntropyIndex:  idx,
		DerivationPubKey:    cryptocore.PubKeyHex(derivationPub),
		EngagementPubKey:    cryptocore.PubKeyHex(engagementPub),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (s *KeyService) GetEngagementKeyForSending(ctx context.Context, vault *domain.Vault, counterpartyAddress string) (*dto.GetEngagementKeyForSendingResponse, error) {
	addr, err := domain.ParseAddress(counterpartyAddress)
	if err != nil {
		return nil, err
	}
	key, err := s.DeriveEngagementKey(ctx, vault, domain.PurposeSend, addr.String(), "")
	if err != nil {
		return nil, err
	}
	return &dto.GetEngagementKeyForSendingResponse{
		EngagementKeyID:  key.ID.String(),
		EngagementPubKey: key.EngagementPubKey,
	}, nil
}

// GetDerivationPrivKey reveals the server-side derivation scalar to the key's
// owner. The owner completes derivation locally (vault scalar + this scalar)
// and must verify the result against the published engagement public key.
func (s *KeyService) GetDerivationPrivKey(ctx context.Context, vault *domain.Vault, engagementKeyID string) (*dto.GetDerivationPrivKeyResponse, error) {
	id, err := uuid.Parse(engagementKeyID)
	if err != nil {
		return nil, domain.BadRequest("invalid engagement key id")
	}
	key, err := s.store.EngagementKeys().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.NotFound("engagement key not found")
		}
		return nil, err
	}
	if key.VaultID != vault.ID {
		return nil, domain.Forbidden("engagement key belongs to another vault")
	}

	// Integrity check against silent corruption of the stored salt: the
	// recomputed scalar would otherwise differ and the owner's completion
	// check would fail with no hint why.
	sum := blake3.Sum256(key.DBEntropy)
	if !bytes.Equal(sum[:], key.DBEntropyHash) {
		return nil, domain.Wrap(domain.KindInternal, nil, "stored entropy failed its integrity check")
	}

	serverEntropy, err := s.entropy.Lookup(key.ServerEntropyIndex)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "derivation entropy unavailable")
	}
	scalar, err := cryptocore.DerivationScalar(serverEntropy[:], key.DBEntropy)
	if err != nil {
		return nil, err
	}
	sb := scalar.Bytes()

	return &dto.GetDerivationPrivKeyResponse{
		EngagementKeyID:   key.ID.String(),
		DerivationPrivKey: hex.EncodeToString(sb[:]),
		EngagementPubKey:  key.EngagementPubKey,
	}, nil
}

// VerifyOwnership answers the federation question for vaults this server is
// authoritative over: does the addressed vault have an engagement key with
// exactly this public key.
func (s *KeyService) VerifyOwnership(ctx context.Context, address, publicKey string) (bool, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return false, err
	}
	if addr.Domain != s.domain {
		return false, domain.BadRequest("not authoritative for domain %q", addr.Domain)
	}
	vault, err := s.store.Vaults().GetByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	_, err = s.store.EngagementKeys().FindByVaultAndPubKey(ctx, vault.ID, publicKey)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
