package model

import "time"

// Cooldown stores the next-eligible timestamp for one (user, action) pair.
// EligibleAt is epoch seconds; a missing row means the action was never used.
type Cooldown struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"uniqueIndex:idx_cooldown_key;size:64;not null" json:"username"`
	Action     string    `gorm:"uniqueIndex:idx_cooldown_key;size:32;not null" json:"action"`
	EligibleAt int64     `gorm:"not null" json:"eligible_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TempBan blocks an entire action family until ExpiresAt (epoch seconds).
// Same shape as Cooldown but semantically distinct: a ban is imposed, a
// cooldown is earned.
type TempBan struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	ExpiresAt int64     `gorm:"not null" json:"expires_at"`
	Reason    string    `gorm:"size:256" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
