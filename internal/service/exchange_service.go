package service

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/observability/metrics"
	"keypears/internal/store"

	"github.com/google/uuid"
)

// OwnershipVerifier asks a remote server whether an address really owns a
// public key. Satisfied by federation.Client; tests substitute their own.
type OwnershipVerifier interface {
	VerifyEngagementKeyOwnership(ctx context.Context, domain, address, publicKey string) (bool, error)
}

// ExchangeService handles the federated key exchange: a sender (usually on
// another server) spends a proof-of-work and proves key ownership, and in
// return gets a fresh receiving key for the local recipient.
type ExchangeService struct {
	store       *store.Store
	pows        *PowService
	keys        *KeyService
	verifier    OwnershipVerifier
	ownDomain   string
	verifyTO    time.Duration
	defaultDiff uint32
}

func NewExchangeService(st *store.Store, pows *PowService, keys *KeyService, verifier OwnershipVerifier, ownDomain string, verifyTimeout time.Duration, defaultDifficulty uint32) *ExchangeService {
	return &ExchangeService{
		store:       st,
		pows:        pows,
		keys:        keys,
		verifier:    verifier,
		ownDomain:   ownDomain,
		verifyTO:    verifyTimeout,
		defaultDiff: defaultDifficulty,
	}
}

// GetCounterpartyEngagementKey is the exchange entry point. Verification
// order matters: the proof is consumed before the signature and federation
// checks, so a caller who fails those later checks has still spent their
// work and cannot grind the expensive steps for free.
//
// The lookup at the top makes retries safe: once a (recipient, sender,
// sender key) triple has a receiving key, asking again returns the same key
// without demanding a fresh proof.
func (s *ExchangeService) GetCounterpartyEngagementKey(ctx context.Context, req dto.GetCounterpartyEngagementKeyRequest) (*dto.GetCounterpartyEngagementKeyResponse, error) {
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
	senderPub, err := cryptocore.ParsePubKeyHex(req.SenderPubKey)
	if err != nil {
		return nil, domain.BadRequest("invalid sender public key")
	}

	vault, err := s.store.Vaults().GetByAddress(ctx, recipient)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.NotFound("recipient not found")
		}
		return nil, err
	}

	required := s.requiredDifficulty(ctx, recipient.String(), sender.String(), vault)

	if existing, err := s.store.EngagementKeys().FindByIdentity(ctx, vault.ID, domain.PurposeReceive, sender.String(), req.SenderPubKey); err == nil {
		return &dto.GetCounterpartyEngagementKeyResponse{
			EngagementKeyID:    existing.ID.String(),
			EngagementPubKey:   existing.EngagementPubKey,
			RequiredDifficulty: required,
		}, nil
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	challengeID, err := uuid.Parse(req.PowChallengeID)
	if err != nil {
		return nil, domain.BadRequest("invalid challenge id")
	}
	if _, err := s.pows.VerifyAndConsume(ctx, challengeID, req.SolvedHeader, req.SolvedHash, &required); err != nil {
		return nil, err
	}

	sigDER, err := hex.DecodeString(req.Signature)
	if err != nil || !cryptocore.VerifyHash(sigDER, req.SolvedHash, senderPub) {
		return nil, domain.BadRequest("solution signature does not verify against sender key")
	}

	if err := s.verifySenderOwnership(ctx, sender, req.SenderPubKey); err != nil {
		return nil, err
	}

	if err := s.store.PowChallenges().BindChannel(ctx, challengeID, sender.String(), recipient.String(), req.SenderPubKey); err != nil {
		return nil, err
	}

	key, err := s.keys.DeriveEngagementKey(ctx, vault, domain.PurposeReceive, sender.String(), req.SenderPubKey)
	if err != nil {
		return nil, err
	}
	return &dto.GetCounterpartyEngagementKeyResponse{
		EngagementKeyID:    key.ID.String(),
		EngagementPubKey:   key.EngagementPubKey,
		RequiredDifficulty: required,
	}, nil
}

// requiredDifficulty applies the override chain for the recipient's side of
// this conversation: channel override, then vault override, then the system
// default. A missing channel simply contributes no override.
func (s *ExchangeService) requiredDifficulty(ctx context.Context, recipientAddress, senderAddress string, vault *domain.Vault) uint32 {
	var channelMin *uint32
	if ch, err := s.store.Channels().FindByPair(ctx, recipientAddress, senderAddress); err == nil {
		channelMin = ch.MinDifficulty
	}
	return ResolveMinDifficulty(s.defaultDiff, channelMin, vault.MinDifficulty)
}

// verifySenderOwnership closes the impersonation hole: the sender's own
// server must attest that the claimed address holds the claimed key. Local
// senders are checked directly; anything that stops us reaching a remote
// server is Unavailable, a clean "no" is Forbidden. Fail closed throughout.
func (s *ExchangeService) verifySenderOwnership(ctx context.Context, sender domain.Address, senderPubKey string) error {
	var (
		valid bool
		err   error
	)
	if sender.Domain == s.ownDomain {
		valid, err = s.keys.VerifyOwnership(ctx, sender.String(), senderPubKey)
	} else {
		vctx, cancel := context.WithTimeout(ctx, s.verifyTO)
		defer cancel()
		valid, err = s.verifier.VerifyEngagementKeyOwnership(vctx, sender.Domain, sender.String(), senderPubKey)
	}
	if err != nil {
		metrics.FederationVerificationsTotal.WithLabelValues("error").Inc()
		return domain.Wrap(domain.KindUnavailable, err, "could not verify sender ownership with %s", sender.Domain)
	}
	if !valid {
		metrics.FederationVerificationsTotal.WithLabelValues("rejected").Inc()
		return domain.Forbidden("sender does not own the presented key")
	}
	metrics.FederationVerificationsTotal.WithLabelValues("verified").Inc()
	return nil
}
