package upgrade

import (
	"context"
	"errors"
	"math"

	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnknownTrack is returned for a track name outside the five tracks.
	ErrUnknownTrack = errors.New("upgrade: unknown track")
	// ErrMaxLevelReached is returned when the track is already maxed.
	ErrMaxLevelReached = errors.New("upgrade: max level reached")
	// ErrInsufficientPoints is returned when points cannot cover the cost.
	ErrInsufficientPoints = errors.New("upgrade: insufficient points")
)

// Track describes one progression axis.
type Track struct {
	Name     string  `json:"name"`
	Display  string  `json:"display"`
	BaseCost int64   `json:"base_cost"`
	Growth   float64 `json:"growth"`
	MaxLevel int     `json:"max_level"`
	Effect   string  `json:"effect"`
	column   string
}

// Tracks lists the five progression tracks in display order.
var Tracks = []Track{
	{model.TrackDoubleCatch, "Double Catch", 10, 1.5, 100, "+0.1% chance per level of bonus catches", "double_catch"},
	{model.TrackRareFishChance, "Rare Fish Chance", 10, 1.5, 100, "+1 rarity weight per level", "rare_fish_chance"},
	{model.TrackCooldownReduction, "Cooldown Reduction", 15, 1.6, 100, "-0.1% fishing cooldown per level", "fishing_cooldown_reduction"},
	{model.TrackShopDiscount, "Shop Discount", 15, 1.6, 100, "-0.1% shop prices per level", "shop_discount"},
	{model.TrackSalePriceIncrease, "Sale Price Up", 20, 1.7, 100, "+0.1% sale proceeds per level", "sale_price_increase"},
}

func trackByName(name string) (Track, bool) {
	for _, t := range Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return Track{}, false
}

// Cost returns the points needed to advance from level to level+1:
// base_cost × (level + 1) ^ growth.
func (t Track) Cost(level int) int64 {
	return int64(math.Round(float64(t.BaseCost) * math.Pow(float64(level+1), t.Growth)))
}

// Service is the progression engine: leveled tracks purchased with a
// secondary points balance, itself purchased with the primary currency.
type Service struct {
	db      *gorm.DB
	economy *economy.Service
	logger  *zap.Logger
}

// NewService creates an upgrade Service.
func NewService(db *gorm.DB, eco *economy.Service, logger *zap.Logger) *Service {
	return &Service{db: db, economy: eco, logger: logger}
}

func (svc *Service) ensure(ctx context.Context, username string) (*model.Upgrade, error) {
	var u model.Upgrade
	err := svc.db.WithContext(ctx).
		Where(model.Upgrade{Username: username}).
		FirstOrCreate(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns the player's track levels and points balance.
func (svc *Service) Get(ctx context.Context, username string) (*model.Upgrade, error) {
	return svc.ensure(ctx, username)
}

// Level returns one track's level, zero on any storage failure so modifier
// lookups degrade to "no bonus" instead of blocking the action.
func (svc *Service) Level(ctx context.Context, username, track string) int {
	u, err := svc.ensure(ctx, username)
	if err != nil {
		svc.logger.Warn("upgrade level lookup failed",
			zap.String("username", username), zap.Error(err))
		return 0
	}
	return u.Level(track)
}

// PurchasePoints converts primary currency into upgrade points. The debit
// and the credit hit two different stores; each leg is a single atomic
// statement, and a failure of the first leg prevents the second.
func (svc *Service) PurchasePoints(ctx context.Context, username string, points, cost int64) (int64, error) {
	if _, err := svc.ensure(ctx, username); err != nil {
		return 0, err
	}
	if err := svc.economy.Debit(ctx, username, cost); err != nil {
		return 0, err
	}
	err := svc.db.WithContext(ctx).Model(&model.Upgrade{}).
		Where("username = ?", username).
		Update("points", gorm.Expr("points + ?", points)).Error
	if err != nil {
		return 0, err
	}
	u, err := svc.ensure(ctx, username)
	if err != nil {
		return 0, err
	}
	return u.Points, nil
}

// Upgrade advances one track by exactly one level, debiting the cost
// computed from the current level.
func (svc *Service) Upgrade(ctx context.Context, username, track string) (int, error) {
	t, ok := trackByName(track)
	if !ok {
		return 0, ErrUnknownTrack
	}
	newLevel := 0
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.Upgrade
		if err := tx.Where(model.Upgrade{Username: username}).FirstOrCreate(&u).Error; err != nil {
			return err
		}
		level := u.Level(track)
		if level >= t.MaxLevel {
			return ErrMaxLevelReached
		}
		cost := t.Cost(level)
		if u.Points < cost {
			return ErrInsufficientPoints
		}
		newLevel = level + 1
		return tx.Model(&u).Updates(map[string]interface{}{
			"points": gorm.Expr("points - ?", cost),
			t.column: newLevel,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return newLevel, nil
}
