package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wager is a challenge attached to a prediction
type Wager struct {
	ID           string    `gorm:"type:varchar(36);primaryKey;column:id"`
	PredictionID string    `gorm:"type:varchar(36);not null;index:wagers_prediction_ix;column:prediction_id"`
	ChallengerID string    `gorm:"type:varchar(64);not null;index:wagers_challenger_ix;column:challenger_id"`
	RecipientID  string    `gorm:"type:varchar(64);not null;index:wagers_recipient_ix;column:recipient_id"`
	Terms        string    `gorm:"type:text;not null;column:terms"`
	Status       string    `gorm:"type:varchar(16);not null;default:'pending';column:status"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
	UpdatedAt    time.Time `gorm:"not null;column:updated_at"`

	Prediction *Prediction `gorm:"foreignKey:PredictionID;references:ID"`
	Challenger *Profile    `gorm:"foreignKey:ChallengerID;references:ID"`
	Recipient  *Profile    `gorm:"foreignKey:RecipientID;references:ID"`
}

// TableName specifies the table name for Wager
func (Wager) TableName() string {
	return "wagers"
}

// BeforeCreate assigns an id when unset
func (w *Wager) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

// Wager states
const (
	WagerPending   = "pending"
	WagerAccepted  = "accepted"
	WagerDeclined  = "declined"
	WagerCompleted = "completed"
)
