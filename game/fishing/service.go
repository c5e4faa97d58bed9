package fishing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/game/drop"
	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/game/session"
	"github.com/lonely-fr/perofish-server/game/upgrade"
	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrBanned is returned for banned or temporarily banned users.
	ErrBanned = errors.New("fishing: user is banned")
	// ErrIgnored is returned for users flagged to be silently skipped.
	ErrIgnored = errors.New("fishing: user is ignored")
	// ErrWindowClosed is returned for limited-pool casts outside the window.
	ErrWindowClosed = errors.New("fishing: window is closed")
)

// Config holds the tunables for a cast.
type Config struct {
	BaseCooldown    time.Duration
	MaxBonusCatches int
}

// Service orchestrates one cast: gate, draw, unique claim, inventory
// insert, re-arm.
type Service struct {
	db       *gorm.DB
	drops    *drop.Engine
	gate     *cooldown.Gate
	economy  *economy.Service
	upgrades *upgrade.Service
	session  *session.Session
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a fishing Service.
func NewService(db *gorm.DB, drops *drop.Engine, gate *cooldown.Gate, eco *economy.Service, up *upgrade.Service, sess *session.Session, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		drops:    drops,
		gate:     gate,
		economy:  eco,
		upgrades: up,
		session:  sess,
		cfg:      cfg,
		logger:   logger,
	}
}

// Result reports the outcome of a cast. Wait above zero means the user is
// still cooling down and no draw happened; being gated is not an error.
type Result struct {
	Wait     int64                 `json:"wait,omitempty"`
	Catches  []model.InventoryItem `json:"catches,omitempty"`
	Uniques  []string              `json:"uniques,omitempty"`
	NextWait int64                 `json:"next_wait"`
}

// Catch performs one cast for the user. The primary draw plus any bonus
// draws run inside a single transaction so a unique claim and its
// inventory instance commit or roll back together.
func (svc *Service) Catch(ctx context.Context, username string, mode drop.Mode) (*Result, error) {
	username = strings.ToLower(username)
	player, err := svc.economy.EnsurePlayer(ctx, username)
	if err != nil {
		return nil, err
	}
	if player.Banned {
		return nil, ErrBanned
	}
	if player.Ignored {
		return nil, ErrIgnored
	}
	if remaining, err := svc.gate.BanRemaining(ctx, username); err != nil {
		return nil, err
	} else if remaining > 0 {
		return nil, ErrBanned
	}
	if mode == drop.ModeLimited && !svc.session.WindowOpen() {
		return nil, ErrWindowClosed
	}

	wait, err := svc.gate.Check(ctx, username, cooldown.ActionFish)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		return &Result{Wait: wait, NextWait: wait}, nil
	}

	rareLevel := svc.upgrades.Level(ctx, username, model.TrackRareFishChance)
	doubleLevel := svc.upgrades.Level(ctx, username, model.TrackDoubleCatch)
	cdLevel := svc.upgrades.Level(ctx, username, model.TrackCooldownReduction)

	draws := 1 + svc.drops.BonusCatches(doubleLevel, svc.cfg.MaxBonusCatches)

	result := &Result{}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		redraws := 0
		for i := 0; i < draws; i++ {
			def, err := svc.drops.DrawTx(tx, model.ItemTypeFish, mode, rareLevel)
			if err != nil {
				if errors.Is(err, drop.ErrNoItemsAvailable) && i > 0 {
					return nil
				}
				return err
			}
			if def.Unique {
				// Guarded claim: a concurrent cast that already took the
				// single live instance makes this a no-op and we redraw.
				claim := tx.Model(&model.ItemDef{}).
					Where("id = ? AND caught = ?", def.ID, false).
					Update("caught", true)
				if claim.Error != nil {
					return claim.Error
				}
				if claim.RowsAffected == 0 {
					if redraws++; redraws > 3 {
						continue
					}
					i--
					continue
				}
				result.Uniques = append(result.Uniques, def.Name)
			}
			item := model.InventoryItem{
				Username:  username,
				ItemDefID: def.ID,
				Type:      def.Type,
				Name:      def.Name,
				Rarity:    def.Rarity,
				Value:     def.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			result.Catches = append(result.Catches, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	duration := cooldown.FishingDuration(svc.cfg.BaseCooldown, cdLevel)
	if err := svc.gate.Arm(ctx, username, cooldown.ActionFish, duration); err != nil {
		return nil, err
	}
	result.NextWait = int64(duration.Seconds())

	svc.logger.Info("catch",
		zap.String("username", username),
		zap.String("mode", string(mode)),
		zap.Int("catches", len(result.Catches)),
		zap.Int("uniques", len(result.Uniques)))
	return result, nil
}
