package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Prediction represents a user's statement about a future outcome
type Prediction struct {
	ID               string         `gorm:"type:varchar(36);primaryKey;index:predictions_feed_ix,priority:4,sort:desc;column:id"`
	UserID           string         `gorm:"type:varchar(64);not null;index:predictions_user_ix;column:user_id"`
	Category         string         `gorm:"type:varchar(32);not null;index:predictions_category_ix;column:category"`
	Text             string         `gorm:"type:varchar(1120);not null;column:text"`
	CreatedAt        time.Time      `gorm:"not null;index:predictions_feed_ix,priority:3,sort:desc;column:created_at"`
	TargetDate       *time.Time     `gorm:"column:target_date"`
	Outcome          string         `gorm:"type:varchar(8);not null;default:'pending';column:outcome"`
	EvidenceImageURL sql.NullString `gorm:"type:varchar(1024);column:evidence_image_url"`
	Meta             datatypes.JSON `gorm:"not null;default:'{}';column:meta"`
	IsPrivate        bool           `gorm:"not null;default:false;index:predictions_feed_ix,priority:1;column:is_private"`
	DeletedAt        *time.Time     `gorm:"index:predictions_feed_ix,priority:2;column:deleted_at"`

	Author *Profile `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Prediction
func (Prediction) TableName() string {
	return "predictions"
}

// BeforeCreate assigns an id and an empty meta object when unset
func (p *Prediction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if len(p.Meta) == 0 {
		p.Meta = datatypes.JSON("{}")
	}
	if p.Outcome == "" {
		p.Outcome = OutcomePending
	}
	return nil
}

// Prediction outcomes
const (
	OutcomePending = "pending"
	OutcomeTrue    = "true"
	OutcomeFalse   = "false"
)

// IsOutcome reports whether s is a valid outcome
func IsOutcome(s string) bool {
	return s == OutcomePending || s == OutcomeTrue || s == OutcomeFalse
}

// PredictionMeta is the structured metadata stored in Prediction.Meta
type PredictionMeta struct {
	Tags       []string `json:"tags,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Action     string   `json:"action,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// IsZero reports whether no metadata field is set
func (m PredictionMeta) IsZero() bool {
	return len(m.Tags) == 0 && len(m.Entities) == 0 && m.Subject == "" && m.Action == "" && m.Confidence == nil
}
