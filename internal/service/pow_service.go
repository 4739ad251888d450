package service

import (
	"context"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/observability/metrics"
	"keypears/internal/pow"
	"keypears/internal/store"
)

// PoW verification failure reasons. Stable strings: they feed both error
// messages and the verification outcome metric. None of these outcomes are
// retried; the solver must request a fresh challenge.
const (
	PowReasonNotFound         = "not found"
	PowReasonExpired          = "expired"
	PowReasonDifficultyTooLow = "difficulty too low"
	PowReasonLengthMismatch   = "length mismatch"
	PowReasonHeaderTampered   = "header tampered"
	PowReasonHashMismatch     = "hash mismatch"
	PowReasonTargetNotMet     = "target not met"
	PowReasonAlreadyUsed      = "already used"
)

type PowService struct {
	store             *store.Store
	alg               pow.Algorithm
	ttl               time.Duration
	defaultDifficulty uint32
	now               func() time.Time
}

func NewPowService(st *store.Store, alg pow.Algorithm, ttl time.Duration, defaultDifficulty uint32) *PowService {
	return &PowService{
		store:             st,
		alg:               alg,
		ttl:               ttl,
		defaultDifficulty: defaultDifficulty,
		now:               time.Now,
	}
}

// CreateChallenge issues a fresh puzzle: the nonce region is left zeroed for
// the solver, everything else is random so no two challenges share content.
func (s *PowService) CreateChallenge(ctx context.Context, difficulty *uint32) (*domain.PowChallenge, error) {
	d := s.defaultDifficulty
	if difficulty != nil {
		d = *difficulty
	}
	if d > pow.MaxDifficulty {
		return nil, domain.BadRequest("difficulty %d exceeds maximum %d", d, pow.MaxDifficulty)
	}

	header := make([]byte, s.alg.HeaderSize())
	if err := cryptocore.ReadRandom(header); err != nil {
		return nil, err
	}
	header = s.alg.ZeroNonce(header)

	target := pow.TargetFromDifficulty(d)
	now := s.now().UTC()
	c := &domain.PowChallenge{
		Algorithm:  s.alg.String(),
		Header:     header,
		Target:     target[:],
		Difficulty: d,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.PowChallenges().Create(ctx, c); err != nil {
		return nil, err
	}
	metrics.PowChallengesIssuedTotal.Inc()
	return c, nil
}

func powFail(kind domain.Kind, reason string) error {
	metrics.PowVerificationsTotal.WithLabelValues(reason).Inc()
	return &domain.Error{Kind: kind, Msg: reason}
}

// VerifyAndConsume runs the full integrity chain over a claimed solution and,
// if everything holds, atomically spends the challenge. Cheapest checks come
// first; the conditional update at the end closes the check-then-act race so
// exactly one concurrent caller can ever win the same challenge.
func (s *PowService) VerifyAndConsume(ctx context.Context, id domain.ChallengeID, solvedHeader, claimedHash []byte, minDifficulty *uint32) (*domain.PowChallenge, error) {
	c, err := s.store.PowChallenges().GetByID(ctx, id)
	if err != nil {
		if err == store.ErrRecordNotFound {
			return nil, powFail(domain.KindNotFound, PowReasonNotFound)
		}
		return nil, err
	}

	now := s.now().UTC()
	if now.After(c.ExpiresAt) {
		return nil, powFail(domain.KindBadRequest, PowReasonExpired)
	}
	if minDifficulty != nil && c.Difficulty < *minDifficulty {
		return nil, powFail(domain.KindBadRequest, PowReasonDifficultyTooLow)
	}
	if len(solvedHeader) != len(c.Header) {
		return nil, powFail(domain.KindBadRequest, PowReasonLengthMismatch)
	}

	alg, err := pow.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return nil, err
	}

	// The solver may only have touched the nonce region. Zero it on both
	// sides and require byte equality everywhere else, so a solution cannot
	// smuggle in different challenge content.
	if string(alg.ZeroNonce(solvedHeader)) != string(alg.ZeroNonce(c.Header)) {
		return nil, powFail(domain.KindBadRequest, PowReasonHeaderTampered)
	}

	hash, err := alg.Hash(solvedHeader)
	if err != nil {
		return nil, err
	}
	if string(hash[:]) != string(claimedHash) {
		return nil, powFail(domain.KindBadRequest, PowReasonHashMismatch)
	}
	if !pow.MeetsTarget(hash[:], c.Target) {
		return nil, powFail(domain.KindBadRequest, PowReasonTargetNotMet)
	}

	ok, err := s.store.PowChallenges().Consume(ctx, c.ID, solvedHeader, hash[:], now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, powFail(domain.KindConflict, PowReasonAlreadyUsed)
	}
	metrics.PowVerificationsTotal.WithLabelValues("valid").Inc()

	c.IsUsed = true
	c.SolvedHeader = solvedHeader
	c.SolvedHash = hash[:]
	c.VerifiedAt = &now
	return c, nil
}
