package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrAlreadyQueued is returned when the user is already in the queue.
	ErrAlreadyQueued = errors.New("queue: already queued")
	// ErrNotQueued is returned when the user is not in the queue.
	ErrNotQueued = errors.New("queue: not queued")
	// ErrNoPasses is returned when the user has no pass tokens left.
	ErrNoPasses = errors.New("queue: no passes available")
	// ErrQueueEmpty is returned by Pop on an empty queue.
	ErrQueueEmpty = errors.New("queue: queue is empty")
	// ErrPassCoolingDown is returned when the per-user pass gate is armed.
	ErrPassCoolingDown = errors.New("queue: pass recently used")
)

// Service manages the stream slot queue. Ordering is SortKey ascending
// then ID ascending, so pass holders jump the line by taking a SortKey
// below the current minimum.
type Service struct {
	db           *gorm.DB
	gate         *cooldown.Gate
	passCooldown time.Duration
	logger       *zap.Logger
}

// NewService creates a queue Service.
func NewService(db *gorm.DB, gate *cooldown.Gate, passCooldown time.Duration, logger *zap.Logger) *Service {
	return &Service{db: db, gate: gate, passCooldown: passCooldown, logger: logger}
}

// Join appends the user to the back of the queue.
func (svc *Service) Join(ctx context.Context, username string) (*model.QueueEntry, error) {
	username = strings.ToLower(username)
	var entry model.QueueEntry
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.QueueEntry
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return ErrAlreadyQueued
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var maxKey int64
		tx.Model(&model.QueueEntry{}).
			Select("COALESCE(MAX(sort_key), 0)").
			Scan(&maxKey)
		entry = model.QueueEntry{Username: username, SortKey: maxKey + 1}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("queue join", zap.String("username", username))
	return &entry, nil
}

// Leave removes the user from the queue.
func (svc *Service) Leave(ctx context.Context, username string) error {
	username = strings.ToLower(username)
	res := svc.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&model.QueueEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotQueued
	}
	return nil
}

// Position returns the user's 1-based place in line.
func (svc *Service) Position(ctx context.Context, username string) (int, error) {
	username = strings.ToLower(username)
	var entry model.QueueEntry
	err := svc.db.WithContext(ctx).Where("username = ?", username).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotQueued
	}
	if err != nil {
		return 0, err
	}
	var ahead int64
	err = svc.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("sort_key < ? OR (sort_key = ? AND id < ?)", entry.SortKey, entry.SortKey, entry.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// List returns the queue in order.
func (svc *Service) List(ctx context.Context) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := svc.db.WithContext(ctx).
		Order("sort_key, id").
		Find(&entries).Error
	return entries, err
}

// Pop removes and returns the head of the queue.
func (svc *Service) Pop(ctx context.Context) (*model.QueueEntry, error) {
	var head model.QueueEntry
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("sort_key, id").First(&head).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQueueEmpty
		}
		if err != nil {
			return err
		}
		return tx.Delete(&head).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("queue pop", zap.String("username", head.Username))
	return &head, nil
}

// UsePass consumes one pass token and moves the user to the front. The
// user must already be queued, and the per-user pass gate must be clear.
func (svc *Service) UsePass(ctx context.Context, username string) error {
	username = strings.ToLower(username)
	wait, err := svc.gate.Check(ctx, username, cooldown.ActionPass)
	if err != nil {
		return err
	}
	if wait > 0 {
		return ErrPassCoolingDown
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		err := tx.Where("username = ?", username).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotQueued
		}
		if err != nil {
			return err
		}

		var pass model.QueuePass
		err = tx.Where("username = ?", username).First(&pass).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && pass.Count <= 0) {
			return ErrNoPasses
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&pass).
			Update("count", gorm.Expr("count - ?", 1)).Error; err != nil {
			return err
		}

		var minKey int64
		tx.Model(&model.QueueEntry{}).
			Select("COALESCE(MIN(sort_key), 0)").
			Scan(&minKey)
		return tx.Model(&entry).Update("sort_key", minKey-1).Error
	})
	if err != nil {
		return err
	}

	if err := svc.gate.Arm(ctx, username, cooldown.ActionPass, svc.passCooldown); err != nil {
		return err
	}
	svc.logger.Info("queue pass used", zap.String("username", username))
	return nil
}

// GrantPass adds tokens to the user's pass balance.
func (svc *Service) GrantPass(ctx context.Context, username string, count int) (int, error) {
	username = strings.ToLower(username)
	var pass model.QueuePass
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.QueuePass{Username: username}).
			FirstOrCreate(&pass).Error; err != nil {
			return err
		}
		if err := tx.Model(&pass).
			Update("count", gorm.Expr("count + ?", count)).Error; err != nil {
			return err
		}
		return tx.Where("username = ?", username).First(&pass).Error
	})
	if err != nil {
		return 0, err
	}
	return pass.Count, nil
}

// Passes returns the user's pass balance.
func (svc *Service) Passes(ctx context.Context, username string) (int, error) {
	username = strings.ToLower(username)
	var pass model.QueuePass
	err := svc.db.WithContext(ctx).Where("username = ?", username).First(&pass).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pass.Count, nil
}
