package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship is a directed edge from requester to recipient. PairKey holds
// the unordered pair so the store admits one edge per pair.
type Friendship struct {
	ID          string    `gorm:"type:varchar(36);primaryKey;column:id"`
	RequesterID string    `gorm:"type:varchar(64);not null;index:friendships_requester_ix;column:requester_id"`
	RecipientID string    `gorm:"type:varchar(64);not null;index:friendships_recipient_ix;column:recipient_id"`
	Status      string    `gorm:"type:varchar(16);not null;default:'pending';column:status"`
	PairKey     string    `gorm:"type:varchar(130);not null;uniqueIndex:friendships_pair_ux;column:pair_key"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at"`

	Requester *Profile `gorm:"foreignKey:RequesterID;references:ID"`
	Recipient *Profile `gorm:"foreignKey:RecipientID;references:ID"`
}

// TableName specifies the table name for Friendship
func (Friendship) TableName() string {
	return "friendships"
}

// BeforeCreate assigns an id and the canonical pair key
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.PairKey = PairKey(f.RequesterID, f.RecipientID)
	return nil
}

// PairKey returns the order independent key for two identities
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Friendship states
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipBlocked  = "blocked"
)
