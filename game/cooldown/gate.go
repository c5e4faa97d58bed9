package cooldown

import (
	"context"
	"errors"
	"time"

	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Action classes gated per user. Each class has its own next-eligible
// timestamp; a ban blocks the whole game, a cooldown blocks one action.
const (
	ActionFish  = "fish"
	ActionPass  = "pass"
	ActionSlots = "slots"
	ActionPaste = "paste"
	ActionDaily = "daily"
)

// Gate tracks per-user, per-action next-eligible timestamps in the database.
// Being on cooldown is never an error: Check reports remaining seconds and
// the caller relays them.
type Gate struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGate creates a Gate.
func NewGate(db *gorm.DB, logger *zap.Logger) *Gate {
	return &Gate{db: db, logger: logger}
}

// Check returns the remaining seconds before user may perform action.
// Zero means eligible. Check never mutates state.
func (g *Gate) Check(ctx context.Context, username, action string) (int64, error) {
	var cd model.Cooldown
	err := g.db.WithContext(ctx).
		Where("username = ? AND action = ?", username, action).
		First(&cd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := cd.EligibleAt - time.Now().Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Arm sets the next-eligible timestamp to now+duration, unconditionally
// overwriting any prior value.
func (g *Gate) Arm(ctx context.Context, username, action string, duration time.Duration) error {
	eligibleAt := time.Now().Add(duration).Unix()
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cd model.Cooldown
		err := tx.Where("username = ? AND action = ?", username, action).First(&cd).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.Cooldown{
				Username:   username,
				Action:     action,
				EligibleAt: eligibleAt,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&cd).Update("eligible_at", eligibleAt).Error
	})
}

// FishingDuration applies the fishing_cooldown_reduction level to the base
// cooldown: base × (1 − level×0.1%), floored to whole non-negative seconds.
func FishingDuration(base time.Duration, level int) time.Duration {
	factor := 1 - float64(level)*0.001
	if factor < 0 {
		factor = 0
	}
	secs := int64(base.Seconds() * factor)
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs) * time.Second
}

// Ban blocks the user's whole action family until now+duration.
func (g *Gate) Ban(ctx context.Context, username, reason string, duration time.Duration) error {
	expiresAt := time.Now().Add(duration).Unix()
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ban model.TempBan
		err := tx.Where("username = ?", username).First(&ban).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.TempBan{
				Username:  username,
				ExpiresAt: expiresAt,
				Reason:    reason,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&ban).Updates(map[string]interface{}{
			"expires_at": expiresAt,
			"reason":     reason,
		}).Error
	})
}

// BanRemaining returns the seconds left on the user's temp ban, zero if none.
func (g *Gate) BanRemaining(ctx context.Context, username string) (int64, error) {
	var ban model.TempBan
	err := g.db.WithContext(ctx).Where("username = ?", username).First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := ban.ExpiresAt - time.Now().Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Unban lifts a temp ban early. Lifting a non-existent ban is a no-op.
func (g *Gate) Unban(ctx context.Context, username string) error {
	return g.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&model.TempBan{}).Error
}
