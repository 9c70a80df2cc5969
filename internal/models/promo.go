package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Advertisement is a promotional card merged into feeds
type Advertisement struct {
	ID        string         `gorm:"type:varchar(36);primaryKey;column:id"`
	Title     string         `gorm:"type:varchar(255);not null;column:title"`
	Body      string         `gorm:"type:text;not null;default:'';column:body"`
	ImageURL  sql.NullString `gorm:"type:varchar(1024);column:image_url"`
	LinkURL   string         `gorm:"type:varchar(1024);not null;column:link_url"`
	Category  sql.NullString `gorm:"type:varchar(32);column:category"`
	IsActive  bool           `gorm:"not null;default:false;index:advertisements_active_ix;column:is_active"`
	ViewCount int64          `gorm:"not null;default:0;column:view_count"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Advertisement
func (Advertisement) TableName() string {
	return "advertisements"
}

// BeforeCreate assigns an id when unset
func (a *Advertisement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// Affiliate is a partner link merged into feeds
type Affiliate struct {
	ID          string         `gorm:"type:varchar(36);primaryKey;column:id"`
	Name        string         `gorm:"type:varchar(255);not null;column:name"`
	Description string         `gorm:"type:text;not null;default:'';column:description"`
	ImageURL    sql.NullString `gorm:"type:varchar(1024);column:image_url"`
	LinkURL     string         `gorm:"type:varchar(1024);not null;column:link_url"`
	Category    sql.NullString `gorm:"type:varchar(32);column:category"`
	IsActive    bool           `gorm:"not null;default:false;index:affiliates_active_ix;column:is_active"`
	ViewCount   int64          `gorm:"not null;default:0;column:view_count"`
	CreatedAt   time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Affiliate
func (Affiliate) TableName() string {
	return "affiliates"
}

// BeforeCreate assigns an id when unset
func (a *Affiliate) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// All returns every model for migration
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Prediction{},
		&Friendship{},
		&Wager{},
		&Reaction{},
		&Bookmark{},
		&Advertisement{},
		&Affiliate{},
	}
}
