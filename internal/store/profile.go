package store

import (
	"context"
	"time"

	"github.com/ekinacar/solace/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ProfileStore is read-only from the chat core's perspective; profile and
// check-in writes belong to the onboarding/check-in collaborators.
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile := new(models.Profile)
	err := s.db.WithContext(ctx).First(profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "profileStore.FindProfile")
	}
	return profile, nil
}

// RecentCheckIns returns completed check-ins since the given time, newest first.
func (s *ProfileStore) RecentCheckIns(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND date >= ?", userID, true, since).
		Order("date DESC").
		Find(&checkIns).Error
	if err != nil {
		return nil, errors.Wrap(err, "profileStore.RecentCheckIns")
	}
	return checkIns, nil
}
