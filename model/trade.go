package model

import "time"

// Trade offer states. Completed and cancelled are terminal.
const (
	TradeActive    = "active"
	TradeCompleted = "completed"
	TradeCancelled = "cancelled"
)

// TradeOffer is a proposed exchange awaiting a second party. The offered
// side references a concrete inventory instance; the requested side
// references the catalog, because the responder supplies whichever matching
// instance they own at acceptance time.
type TradeOffer struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Creator         string     `gorm:"index:idx_trade_creator;size:64;not null" json:"creator"`
	OfferedItemID   *int64     `json:"offered_item_id"`
	OfferedAmount   int64      `gorm:"default:0" json:"offered_amount"`
	RequestedDefID  *int64     `json:"requested_def_id"`
	RequestedAmount int64      `gorm:"default:0" json:"requested_amount"`
	Status          string     `gorm:"index:idx_trade_status;size:16;default:active" json:"status"`
	Responder       string     `gorm:"size:64" json:"responder"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
