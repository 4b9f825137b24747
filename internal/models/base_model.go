package models

import (
	"time"
)

// BaseModel provides shared fields for all catalog records. Identifiers are
// auto-incremented by the database.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
