package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/observability/metrics"
	"keypears/internal/store"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

const sessionTokenSize = 32

type SessionService struct {
	store  *store.Store
	hasher *LoginKeyHasher
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(st *store.Store, hasher *LoginKeyHasher, ttl time.Duration) *SessionService {
	return &SessionService{store: st, hasher: hasher, ttl: ttl, now: time.Now}
}

// HashToken is the one-way mapping from a raw session token to its stored
// form. The raw token exists server-side only for the duration of the login
// response.
func HashToken(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (s *SessionService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	result := "failure"
	defer func() { metrics.LoginsTotal.WithLabelValues(result).Inc() }()

	vaultID, err := uuid.Parse(req.VaultID)
	if err != nil {
		return nil, domain.BadRequest("invalid vault id")
	}
	if req.DeviceID == "" {
		return nil, domain.BadRequest("missing device id")
	}
	loginKey, err := hex.DecodeString(req.LoginKey)
	if err != nil || len(loginKey) == 0 {
		return nil, domain.Unauthorized("invalid credentials")
	}

	vault, err := s.store.Vaults().GetByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.Unauthorized("invalid credentials") // don't reveal which field failed
		}
		return nil, err
	}
	if !s.hasher.Verify(loginKey, vault) {
		return nil, domain.Unauthorized("invalid credentials")
	}

	raw := make([]byte, sessionTokenSize)
	if err := cryptocore.ReadRandom(raw); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &domain.DeviceSession{
		ID:                 uuid.New(),
		VaultID:            vault.ID,
		DeviceID:           req.DeviceID,
		HashedSessionToken: HashToken(raw),
		ExpiresAt:          now.Add(s.ttl),
		LastActiveAt:       now,
		CreatedAt:          now,
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}

	result = "success"
	return &dto.LoginResponse{
		SessionToken: hex.EncodeToString(raw),
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// Logout deletes by hashed token and succeeds even when the session is
// already gone.
func (s *SessionService) Logout(ctx context.Context, rawToken string) error {
	raw, err := hex.DecodeString(rawToken)
	if err != nil || len(raw) != sessionTokenSize {
		return nil // nothing such a token could identify
	}
	return s.store.Sessions().DeleteByHashedToken(ctx, HashToken(raw))
}

// Authenticate resolves a raw session token to its vault. Expired sessions
// are deleted on discovery; valid ones get a best-effort activity bump off
// the request path.
func (s *SessionService) Authenticate(ctx context.Context, rawToken string) (*domain.Vault, error) {
	raw, err := hex.DecodeString(rawToken)
	if err != nil || len(raw) != sessionTokenSize {
		return nil, domain.Unauthorized("missing or malformed session token")
	}

	sess, err := s.store.Sessions().GetByHashedToken(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.Unauthorized("invalid session")
		}
		return nil, err
	}

	now := s.now().UTC()
	if now.After(sess.ExpiresAt) {
		if err := s.store.Sessions().Delete(ctx, sess.ID); err != nil {
			slog.Warn("delete expired session", "error", err, "session_id", sess.ID)
		}
		return nil, domain.Unauthorized("session expired")
	}

	vault, err := s.store.Vaults().GetByID(ctx, sess.VaultID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.Unauthorized("invalid session")
		}
		return nil, err
	}

	// Fire-and-forget: activity bumps never block or fail the request.
	go func(id domain.SessionID, at time.Time) {
		bctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Sessions().TouchActivity(bctx, id, at); err != nil {
			slog.Warn("touch session activity", "error", err, "session_id", id)
		}
	}(sess.ID, now)

	return vault, nil
}
