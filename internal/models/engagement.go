package models

import (
	"time"
)

// Reaction is a user's reaction of one type to a prediction
type Reaction struct {
	UserID       string    `gorm:"type:varchar(64);primaryKey;column:user_id"`
	PredictionID string    `gorm:"type:varchar(36);primaryKey;index:reactions_prediction_ix;column:prediction_id"`
	ReactionType string    `gorm:"type:varchar(16);primaryKey;column:reaction_type"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Reaction
func (Reaction) TableName() string {
	return "reactions"
}

// Reaction types
const (
	ReactionFire      = "fire"
	ReactionLaugh     = "laugh"
	ReactionDoubt     = "doubt"
	ReactionMindBlown = "mind_blown"
)

// ReactionTypes lists the accepted reaction types in display order
var ReactionTypes = []string{ReactionFire, ReactionLaugh, ReactionDoubt, ReactionMindBlown}

// IsReactionType reports whether s is an accepted reaction type
func IsReactionType(s string) bool {
	for _, t := range ReactionTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Bookmark marks a prediction as saved by a user
type Bookmark struct {
	UserID       string    `gorm:"type:varchar(64);primaryKey;column:user_id"`
	PredictionID string    `gorm:"type:varchar(36);primaryKey;column:prediction_id"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Bookmark
func (Bookmark) TableName() string {
	return "bookmarks"
}
