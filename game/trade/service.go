package trade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidOffer is returned when an offer has an empty side, a
	// negative amount, or references something the creator does not have.
	ErrInvalidOffer = errors.New("trade: invalid offer")
	// ErrTradeNotFound is returned when the offer does not exist or is no
	// longer active.
	ErrTradeNotFound = errors.New("trade: trade not found")
	// ErrResponderLacksItem is returned when the responder owns no instance
	// of the requested catalog item.
	ErrResponderLacksItem = errors.New("trade: responder lacks requested item")
	// ErrInsufficientFunds is returned when the responder cannot cover the
	// requested currency.
	ErrInsufficientFunds = errors.New("trade: insufficient funds")
	// ErrOfferNoLongerValid is returned when the creator's side fails
	// re-validation at acceptance time.
	ErrOfferNoLongerValid = errors.New("trade: offer no longer valid")
	// ErrBusy is returned when another accept holds the commit lock.
	ErrBusy = errors.New("trade: trade in progress, please retry")
)

// Offer is the creator's side of a proposed exchange.
type Offer struct {
	ItemID *int64 // inventory instance id, nil for currency-only offers
	Amount int64
}

// Request is what the creator wants back. ItemDefID references the catalog,
// not an instance: the responder supplies whichever matching instance they
// own when they accept.
type Request struct {
	ItemDefID *int64
	Amount    int64
}

// Service is the trade-offer state machine over persisted offers.
type Service struct {
	db      *gorm.DB
	cache   cache.Cache
	economy *economy.Service
	logger  *zap.Logger
}

// NewService creates a trade Service.
func NewService(db *gorm.DB, c cache.Cache, eco *economy.Service, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, economy: eco, logger: logger}
}

// Create validates and persists a new active offer. Both sides must be
// non-empty: at least one of {instance, currency} offered and at least one
// of {catalog item, currency} requested.
func (svc *Service) Create(ctx context.Context, creator string, offer Offer, request Request) (*model.TradeOffer, error) {
	creator = strings.ToLower(creator)
	if offer.Amount < 0 || request.Amount < 0 {
		return nil, ErrInvalidOffer
	}
	if offer.ItemID == nil && offer.Amount == 0 {
		return nil, ErrInvalidOffer
	}
	if request.ItemDefID == nil && request.Amount == 0 {
		return nil, ErrInvalidOffer
	}

	if _, err := svc.economy.EnsurePlayer(ctx, creator); err != nil {
		return nil, err
	}

	// Creation-time validation of the creator's side. The same checks run
	// again at acceptance; this only rejects offers that are dead on arrival.
	if offer.ItemID != nil {
		var item model.InventoryItem
		err := svc.db.WithContext(ctx).
			Where("id = ? AND username = ?", *offer.ItemID, creator).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOffer
		}
		if err != nil {
			return nil, err
		}
	}
	if offer.Amount > 0 {
		balance, err := svc.economy.Balance(ctx, creator)
		if err != nil {
			return nil, err
		}
		if balance < offer.Amount {
			return nil, ErrInvalidOffer
		}
	}
	if request.ItemDefID != nil {
		var def model.ItemDef
		err := svc.db.WithContext(ctx).Where("id = ?", *request.ItemDefID).First(&def).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOffer
		}
		if err != nil {
			return nil, err
		}
	}

	t := &model.TradeOffer{
		Creator:         creator,
		OfferedItemID:   offer.ItemID,
		OfferedAmount:   offer.Amount,
		RequestedDefID:  request.ItemDefID,
		RequestedAmount: request.Amount,
		Status:          model.TradeActive,
	}
	if err := svc.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	svc.logger.Info("trade created",
		zap.Int64("trade_id", t.ID), zap.String("creator", creator))
	return t, nil
}

// Get returns one offer by id.
func (svc *Service) Get(ctx context.Context, tradeID int64) (*model.TradeOffer, error) {
	var t model.TradeOffer
	err := svc.db.WithContext(ctx).Where("id = ?", tradeID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActive returns all open offers, newest first.
func (svc *Service) ListActive(ctx context.Context) ([]model.TradeOffer, error) {
	var trades []model.TradeOffer
	err := svc.db.WithContext(ctx).
		Where("status = ?", model.TradeActive).
		Order("id DESC").
		Find(&trades).Error
	return trades, err
}

// Accept executes the exchange as one atomic unit. Every precondition is
// checked inside the transaction; any failure rolls back with the offer
// still active and nothing transferred. Concurrent accepts of the same
// trade are serialized on a cache lock.
func (svc *Service) Accept(ctx context.Context, responder string, tradeID int64) (*model.TradeOffer, error) {
	responder = strings.ToLower(responder)
	if _, err := svc.economy.EnsurePlayer(ctx, responder); err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("lock:trade:%d", tradeID)
	ok, err := svc.cache.SetNX(ctx, lockKey, "1", 30*time.Second)
	if err != nil || !ok {
		return nil, ErrBusy
	}
	defer svc.cache.Del(ctx, lockKey)

	var result model.TradeOffer
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.TradeOffer
		if err := tx.Where("id = ? AND status = ?", tradeID, model.TradeActive).
			First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTradeNotFound
			}
			return err
		}
		if t.Creator == responder {
			return ErrInvalidOffer
		}

		// Responder side.
		var responderItem *model.InventoryItem
		if t.RequestedDefID != nil {
			var item model.InventoryItem
			err := tx.Where("username = ? AND item_def_id = ?", responder, *t.RequestedDefID).
				Order("id").
				First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResponderLacksItem
			}
			if err != nil {
				return err
			}
			responderItem = &item
		}
		if t.RequestedAmount > 0 {
			var p model.Player
			if err := tx.Where("username = ?", responder).First(&p).Error; err != nil {
				return err
			}
			if p.Balance < t.RequestedAmount {
				return ErrInsufficientFunds
			}
		}

		// Re-validate the creator's side: time has passed since creation
		// and the offered instance or balance may be gone.
		var offeredItem *model.InventoryItem
		if t.OfferedItemID != nil {
			var item model.InventoryItem
			err := tx.Where("id = ? AND username = ?", *t.OfferedItemID, t.Creator).
				First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOfferNoLongerValid
			}
			if err != nil {
				return err
			}
			offeredItem = &item
		}
		if t.OfferedAmount > 0 {
			var p model.Player
			if err := tx.Where("username = ?", t.Creator).First(&p).Error; err != nil {
				return err
			}
			if p.Balance < t.OfferedAmount {
				return ErrOfferNoLongerValid
			}
		}

		// Exchange. Ownership transfers update the owner column in place.
		if offeredItem != nil {
			if err := tx.Model(offeredItem).Update("username", responder).Error; err != nil {
				return err
			}
		}
		if responderItem != nil {
			if err := tx.Model(responderItem).Update("username", t.Creator).Error; err != nil {
				return err
			}
		}
		// The debit legs re-check the balance in the statement itself so a
		// concurrent spend between the read above and this write rolls the
		// whole exchange back instead of overdrawing.
		if t.OfferedAmount > 0 {
			res := tx.Model(&model.Player{}).
				Where("username = ? AND balance >= ?", t.Creator, t.OfferedAmount).
				Update("balance", gorm.Expr("balance - ?", t.OfferedAmount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrOfferNoLongerValid
			}
			if err := tx.Model(&model.Player{}).Where("username = ?", responder).
				Update("balance", gorm.Expr("balance + ?", t.OfferedAmount)).Error; err != nil {
				return err
			}
		}
		if t.RequestedAmount > 0 {
			res := tx.Model(&model.Player{}).
				Where("username = ? AND balance >= ?", responder, t.RequestedAmount).
				Update("balance", gorm.Expr("balance - ?", t.RequestedAmount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientFunds
			}
			if err := tx.Model(&model.Player{}).Where("username = ?", t.Creator).
				Update("balance", gorm.Expr("balance + ?", t.RequestedAmount)).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		if err := tx.Model(&t).Updates(map[string]interface{}{
			"status":       model.TradeCompleted,
			"responder":    responder,
			"completed_at": now,
		}).Error; err != nil {
			return err
		}
		t.Status = model.TradeCompleted
		t.Responder = responder
		t.CompletedAt = &now
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.logger.Info("trade completed",
		zap.Int64("trade_id", result.ID),
		zap.String("creator", result.Creator),
		zap.String("responder", responder))
	return &result, nil
}

// Cancel transitions an active offer to cancelled. Only the creator may
// cancel, and terminal offers report ErrTradeNotFound.
func (svc *Service) Cancel(ctx context.Context, creator string, tradeID int64) error {
	creator = strings.ToLower(creator)
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.TradeOffer
		if err := tx.Where("id = ? AND creator = ? AND status = ?",
			tradeID, creator, model.TradeActive).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTradeNotFound
			}
			return err
		}
		return tx.Model(&t).Update("status", model.TradeCancelled).Error
	})
	if err != nil {
		return err
	}
	svc.logger.Info("trade cancelled", zap.Int64("trade_id", tradeID))
	return nil
}
