package store

import (
	"context"
	"time"

	"keypears/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{db: s.DB} }

func (ss *SessionStore) Create(ctx context.Context, sess *domain.DeviceSession) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	return ss.db.WithContext(ctx).Create(sess).Error
}

func (ss *SessionStore) GetByHashedToken(ctx context.Context, hashed string) (*domain.DeviceSession, error) {
	var sess domain.DeviceSession
	if err := ss.db.WithContext(ctx).First(&sess, "hashed_session_token = ?", hashed).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

// DeleteByHashedToken is idempotent: deleting an absent row is success.
func (ss *SessionStore) DeleteByHashedToken(ctx context.Context, hashed string) error {
	return ss.db.WithContext(ctx).
		Where("hashed_session_token = ?", hashed).
		Delete(&domain.DeviceSession{}).Error
}

func (ss *SessionStore) Delete(ctx context.Context, id domain.SessionID) error {
	return ss.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.DeviceSession{}).Error
}

func (ss *SessionStore) TouchActivity(ctx context.Context, id domain.SessionID, at time.Time) error {
	return ss.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("id = ?", id).
		Update("last_active_at", at).Error
}
