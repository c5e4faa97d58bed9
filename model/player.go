package model

import "time"

// Player is one chat user known to the bot. Players are created implicitly
// on first interaction and never hard-deleted; Username is the lowercase
// chat handle and the only identity used across tables.
type Player struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Balance     int64      `gorm:"default:0" json:"balance"`
	LastDailyAt *time.Time `json:"last_daily_at"`
	Banned      bool       `gorm:"default:false" json:"banned"`
	Ignored     bool       `gorm:"default:false" json:"ignored"`
	LastPassAt  *time.Time `json:"last_pass_at"`
	LastSeenAt  time.Time  `gorm:"autoUpdateTime" json:"last_seen_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
