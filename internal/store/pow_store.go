package store

import (
	"context"
	"time"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PowChallengeStore struct{ db *gorm.DB }

func (s *Store) PowChallenges() *PowChallengeStore { return &PowChallengeStore{db: s.DB} }

func (p *PowChallengeStore) Create(ctx context.Context, c *domain.PowChallenge) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return p.db.WithContext(ctx).Create(c).Error
}

func (p *PowChallengeStore) GetByID(ctx context.Context, id domain.ChallengeID) (*domain.PowChallenge, error) {
	var c domain.PowChallenge
	if err := p.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Consume flips is_used false→true with the predicate in the UPDATE itself,
// so under concurrent callers exactly one sees rowsAffected == 1. Everyone
// else lost the race and must treat the challenge as already used.
func (p *PowChallengeStore) Consume(ctx context.Context, id domain.ChallengeID, solvedHeader, solvedHash []byte, at time.Time) (bool, error) {
	tx := p.db.WithContext(ctx).Model(&domain.PowChallenge{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{
			"is_used":       true,
			"solved_header": solvedHeader,
			"solved_hash":   solvedHash,
			"verified_at":   at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// BindChannel records which sender→recipient pair (and sender key) the
// consumed proof was spent for.
func (p *PowChallengeStore) BindChannel(ctx context.Context, id domain.ChallengeID, senderAddress, recipientAddress, senderPubKey string) error {
	return p.db.WithContext(ctx).Model(&domain.PowChallenge{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sender_address":    senderAddress,
			"recipient_address": recipientAddress,
			"sender_pub_key":    senderPubKey,
		}).Error
}
