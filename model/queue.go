package model

import "time"

// QueueEntry is one player waiting for a stream slot. Position is derived
// from insertion order (ID ascending); pass holders are bumped by lowering
// SortKey below the current minimum.
type QueueEntry struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	SortKey  int64     `gorm:"index:idx_queue_sort;not null" json:"sort_key"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// QueuePass is a consumable front-of-queue token balance per player.
type QueuePass struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Count     int       `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
