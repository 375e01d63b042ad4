package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile and CheckIn are owned by the onboarding/check-in collaborators;
// this service only reads them to assemble conversational context.

type Profile struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Name                string         `gorm:"not null" json:"name"`
	Struggles           datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"struggles"`
	SignificantDate     *time.Time     `json:"significant_date"`
	SignificantDateNote string         `gorm:"type:text" json:"significant_date_note"`
	InTherapy           bool           `gorm:"not null;default:false" json:"in_therapy"`
	TherapyDetails      string         `gorm:"type:text" json:"therapy_details"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

type CheckIn struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Date      time.Time      `gorm:"not null;index" json:"date"`
	MoodScore int            `gorm:"not null;default:0" json:"mood_score"`
	Steps     datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"steps"`
	Completed bool           `gorm:"not null;default:false" json:"completed"`
	CreatedAt time.Time      `json:"created_at"`
}

// CheckInStep is one per-dimension note inside CheckIn.Steps.
type CheckInStep struct {
	Dimension string `json:"dimension"`
	Note      string `json:"note"`
}
