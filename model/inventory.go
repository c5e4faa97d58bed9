package model

import (
	"time"

	"gorm.io/datatypes"
)

// InventoryItem is one owned instance of a catalog item. Name, Rarity and
// Value are snapshotted at acquisition time; later catalog price changes do
// not affect owned instances. Ownership transfers (trades) update Username
// in place rather than delete and recreate.
type InventoryItem struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string         `gorm:"index:idx_inventory_owner;size:64;not null" json:"username"`
	ItemDefID  int64          `gorm:"index:idx_inventory_def;not null" json:"item_def_id"`
	Type       string         `gorm:"size:8;not null" json:"type"`
	Name       string         `gorm:"size:128;not null" json:"name"`
	Rarity     string         `gorm:"size:16;not null" json:"rarity"`
	Value      int64          `gorm:"default:0" json:"value"`
	Metadata   datatypes.JSON `json:"metadata"`
	AcquiredAt time.Time      `gorm:"autoCreateTime" json:"acquired_at"`
}
