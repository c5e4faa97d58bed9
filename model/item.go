package model

import "time"

// ItemType distinguishes catalog entries.
type ItemType = string

const (
	ItemTypeFish ItemType = "fish"
	ItemTypeItem ItemType = "item"
)

// ItemDef is one catalog entry. Catalog rows are seeded or admin-added and
// immutable at runtime except for Caught, which tracks whether the single
// live instance of a unique item currently exists.
type ItemDef struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Type        string    `gorm:"index:idx_def_type;size:8;not null" json:"type"`
	Price       int64     `gorm:"default:0" json:"price"`
	Rarity      string    `gorm:"size:16;not null" json:"rarity"`
	Unique      bool      `gorm:"column:is_unique;default:false" json:"unique"`
	Caught      bool      `gorm:"default:false" json:"caught"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
