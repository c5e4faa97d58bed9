package model

import "time"

// Upgrade track identifiers.
const (
	TrackDoubleCatch       = "double_catch"
	TrackRareFishChance    = "rare_fish_chance"
	TrackCooldownReduction = "fishing_cooldown_reduction"
	TrackShopDiscount      = "shop_discount"
	TrackSalePriceIncrease = "sale_price_increase"
)

// Upgrade holds one player's progression levels and spendable points.
// Points are the secondary currency, themselves purchased with the primary
// balance through the economy store.
type Upgrade struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username          string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Points            int64     `gorm:"default:0" json:"points"`
	DoubleCatch       int       `gorm:"default:0" json:"double_catch"`
	RareFishChance    int       `gorm:"default:0" json:"rare_fish_chance"`
	CooldownReduction int       `gorm:"default:0" json:"fishing_cooldown_reduction"`
	ShopDiscount      int       `gorm:"default:0" json:"shop_discount"`
	SalePriceIncrease int       `gorm:"default:0" json:"sale_price_increase"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Level returns the stored level for a track name, 0 for unknown tracks.
func (u *Upgrade) Level(track string) int {
	switch track {
	case TrackDoubleCatch:
		return u.DoubleCatch
	case TrackRareFishChance:
		return u.RareFishChance
	case TrackCooldownReduction:
		return u.CooldownReduction
	case TrackShopDiscount:
		return u.ShopDiscount
	case TrackSalePriceIncrease:
		return u.SalePriceIncrease
	}
	return 0
}
