package models

import (
	"time"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All lists every model managed by AutoMigrate, parents before children.
func All() []any {
	return []any{
		&SaleModel{},
		&CollectionModel{},
		&CollectionEntryModel{},
		&CollectionInstrumentModel{},
	}
}
