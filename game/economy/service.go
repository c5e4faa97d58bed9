package economy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound is returned when an instance id does not exist or is
	// owned by someone else.
	ErrItemNotFound = errors.New("economy: item not found")
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("economy: insufficient funds")
	// ErrDailyNotReady is returned when the daily reward was already claimed.
	ErrDailyNotReady = errors.New("economy: daily reward not ready")
	// ErrNoDuplicates is returned when a duplicate group has nothing to resolve.
	ErrNoDuplicates = errors.New("economy: no duplicates for that item")
)

const leaderboardKey = "leaderboard:balance"

// Service is the inventory ledger plus player balances. All balance
// mutations are single atomic UPDATE statements; multi-row operations run
// inside one transaction.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewService creates an economy Service.
func NewService(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, logger: logger}
}

// EnsurePlayer returns the player row for username, creating it on first
// interaction. Usernames are lowercased before use everywhere in the core.
func (svc *Service) EnsurePlayer(ctx context.Context, username string) (*model.Player, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("economy: empty username")
	}
	var p model.Player
	err := svc.db.WithContext(ctx).
		Where(model.Player{Username: username}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Balance returns the player's current currency balance.
func (svc *Service) Balance(ctx context.Context, username string) (int64, error) {
	p, err := svc.EnsurePlayer(ctx, username)
	if err != nil {
		return 0, err
	}
	return p.Balance, nil
}

// Credit adds amount to the player's balance with one atomic statement.
func (svc *Service) Credit(ctx context.Context, username string, amount int64) error {
	if _, err := svc.EnsurePlayer(ctx, username); err != nil {
		return err
	}
	return svc.db.WithContext(ctx).Model(&model.Player{}).
		Where("username = ?", strings.ToLower(username)).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// Debit removes amount from the player's balance, failing with
// ErrInsufficientFunds if the balance does not cover it. The balance check
// and the decrement are one guarded statement so concurrent debits cannot
// overdraw the row.
func (svc *Service) Debit(ctx context.Context, username string, amount int64) error {
	username = strings.ToLower(username)
	if _, err := svc.EnsurePlayer(ctx, username); err != nil {
		return err
	}
	res := svc.db.WithContext(ctx).Model(&model.Player{}).
		Where("username = ? AND balance >= ?", username, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Acquire creates an inventory instance from a catalog definition,
// snapshotting name, rarity and value at acquisition time. valueOverride,
// when non-nil, replaces the catalog price in the snapshot.
func (svc *Service) Acquire(ctx context.Context, username string, def *model.ItemDef, valueOverride *int64) (*model.InventoryItem, error) {
	if _, err := svc.EnsurePlayer(ctx, username); err != nil {
		return nil, err
	}
	value := def.Price
	if valueOverride != nil {
		value = *valueOverride
	}
	item := &model.InventoryItem{
		Username:  strings.ToLower(username),
		ItemDefID: def.ID,
		Type:      def.Type,
		Name:      def.Name,
		Rarity:    def.Rarity,
		Value:     value,
	}
	if err := svc.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Inventory lists the player's instances, optionally filtered by item type.
func (svc *Service) Inventory(ctx context.Context, username, typeFilter string) ([]model.InventoryItem, error) {
	q := svc.db.WithContext(ctx).Where("username = ?", strings.ToLower(username))
	if typeFilter != "" {
		q = q.Where("type = ?", typeFilter)
	}
	var items []model.InventoryItem
	err := q.Order("id").Find(&items).Error
	return items, err
}

// Remove deletes exactly one instance by id, scoped to the owning user, and
// returns the removed snapshot.
func (svc *Service) Remove(ctx context.Context, username string, instanceID int64) (*model.InventoryItem, error) {
	username = strings.ToLower(username)
	var removed model.InventoryItem
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND username = ?", instanceID, username).
			First(&removed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		return tx.Delete(&removed).Error
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// SaleResult reports a completed sale.
type SaleResult struct {
	Proceeds   int64 `json:"proceeds"`
	NewBalance int64 `json:"new_balance"`
}

// adjustedValue applies the sale_price_increase level: value × (1 + level×0.1%).
func adjustedValue(value int64, saleLevel int) int64 {
	return value * int64(1000+saleLevel) / 1000
}

// Sell removes the instance and credits its snapshotted value adjusted by
// the sale_price_increase level. Unique items are the exception: their sale
// clears the catalog's caught flag (the item re-enters circulation) and
// credits the full unadjusted value.
func (svc *Service) Sell(ctx context.Context, username string, instanceID int64, saleLevel int) (*SaleResult, error) {
	username = strings.ToLower(username)
	if _, err := svc.EnsurePlayer(ctx, username); err != nil {
		return nil, err
	}
	result := &SaleResult{}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.InventoryItem
		if err := tx.Where("id = ? AND username = ?", instanceID, username).
			First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		var def model.ItemDef
		unique := false
		switch err := tx.Where("id = ?", item.ItemDefID).First(&def).Error; {
		case err == nil:
			unique = def.Unique
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Catalog entry deleted out from under the instance: sell at
			// the snapshotted value.
		default:
			return err
		}

		proceeds := adjustedValue(item.Value, saleLevel)
		if unique {
			proceeds = item.Value
			if err := tx.Model(&model.ItemDef{}).Where("id = ?", def.ID).
				Update("caught", false).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Player{}).Where("username = ?", username).
			Update("balance", gorm.Expr("balance + ?", proceeds)).Error; err != nil {
			return err
		}

		var p model.Player
		if err := tx.Where("username = ?", username).First(&p).Error; err != nil {
			return err
		}
		result.Proceeds = proceeds
		result.NewBalance = p.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SellAllResult reports a bulk sale: what sold and what was kept.
type SellAllResult struct {
	Proceeds      int64 `json:"proceeds"`
	Sold          int   `json:"sold"`
	KeptUnique    int   `json:"kept_unique"`
	KeptZeroValue int   `json:"kept_zero_value"`
	NewBalance    int64 `json:"new_balance"`
}

// SellAll sells every non-unique, non-zero-value instance in one
// transaction; unique and worthless instances are kept and counted.
func (svc *Service) SellAll(ctx context.Context, username string, saleLevel int) (*SellAllResult, error) {
	username = strings.ToLower(username)
	if _, err := svc.EnsurePlayer(ctx, username); err != nil {
		return nil, err
	}
	result := &SellAllResult{}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []model.InventoryItem
		if err := tx.Where("username = ?", username).Find(&items).Error; err != nil {
			return err
		}

		uniqueDefs := make(map[int64]bool)
		var defs []model.ItemDef
		if err := tx.Where("is_unique = ?", true).Find(&defs).Error; err != nil {
			return err
		}
		for _, def := range defs {
			uniqueDefs[def.ID] = true
		}

		var proceeds int64
		for _, item := range items {
			if uniqueDefs[item.ItemDefID] {
				result.KeptUnique++
				continue
			}
			if item.Value <= 0 {
				result.KeptZeroValue++
				continue
			}
			proceeds += adjustedValue(item.Value, saleLevel)
			if err := tx.Delete(&item).Error; err != nil {
				return err
			}
			result.Sold++
		}

		if proceeds > 0 {
			if err := tx.Model(&model.Player{}).Where("username = ?", username).
				Update("balance", gorm.Expr("balance + ?", proceeds)).Error; err != nil {
				return err
			}
		}
		result.Proceeds = proceeds

		var p model.Player
		if err := tx.Where("username = ?", username).First(&p).Error; err != nil {
			return err
		}
		result.NewBalance = p.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DuplicateGroup is a set of same-named instances with count > 1.
type DuplicateGroup struct {
	Name      string   `json:"name"`
	Count     int      `json:"count"`
	Instances []int64  `json:"instance_ids"`
	Rarities  []string `json:"rarities"`
	Values    []int64  `json:"values"`
}

// Duplicates groups the player's instances by snapshotted name and returns
// only groups with more than one member.
func (svc *Service) Duplicates(ctx context.Context, username string) ([]DuplicateGroup, error) {
	var items []model.InventoryItem
	err := svc.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(username)).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]model.InventoryItem)
	order := make([]string, 0)
	for _, item := range items {
		if _, seen := byName[item.Name]; !seen {
			order = append(order, item.Name)
		}
		byName[item.Name] = append(byName[item.Name], item)
	}

	groups := make([]DuplicateGroup, 0)
	for _, name := range order {
		members := byName[name]
		if len(members) < 2 {
			continue
		}
		g := DuplicateGroup{Name: name, Count: len(members)}
		for _, m := range members {
			g.Instances = append(g.Instances, m.ID)
			g.Rarities = append(g.Rarities, m.Rarity)
			g.Values = append(g.Values, m.Value)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// ResolveResult reports a duplicate resolution.
type ResolveResult struct {
	Proceeds int64 `json:"proceeds"`
	Removed  int   `json:"removed"`
	KeptID   int64 `json:"kept_id"`
}

// ResolveDuplicates sells all but one instance of the named item. The
// single lowest-value copy is the one retained; everything else is credited
// at its sale-adjusted value. Keeping the cheapest copy mirrors the
// original bot's behavior and is deliberately preserved.
func (svc *Service) ResolveDuplicates(ctx context.Context, username, name string, saleLevel int) (*ResolveResult, error) {
	username = strings.ToLower(username)
	result := &ResolveResult{}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []model.InventoryItem
		if err := tx.Where("username = ? AND name = ?", username, name).
			Find(&members).Error; err != nil {
			return err
		}
		if len(members) < 2 {
			return ErrNoDuplicates
		}

		sort.Slice(members, func(i, j int) bool { return members[i].Value < members[j].Value })
		result.KeptID = members[0].ID

		var proceeds int64
		for _, m := range members[1:] {
			proceeds += adjustedValue(m.Value, saleLevel)
			if err := tx.Delete(&m).Error; err != nil {
				return err
			}
			result.Removed++
		}

		result.Proceeds = proceeds
		return tx.Model(&model.Player{}).Where("username = ?", username).
			Update("balance", gorm.Expr("balance + ?", proceeds)).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimDaily credits the daily reward if the last claim is older than the
// gate, returning the new balance.
func (svc *Service) ClaimDaily(ctx context.Context, username string, reward int64, gate time.Duration) (int64, error) {
	username = strings.ToLower(username)
	p, err := svc.EnsurePlayer(ctx, username)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	if p.LastDailyAt != nil && now.Sub(*p.LastDailyAt) < gate {
		return 0, ErrDailyNotReady
	}
	err = svc.db.WithContext(ctx).Model(&model.Player{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("balance + ?", reward),
			"last_daily_at": now,
		}).Error
	if err != nil {
		return 0, err
	}
	return svc.Balance(ctx, username)
}

// RefreshLeaderboard copies the top balances into the cache ZSet.
func (svc *Service) RefreshLeaderboard(ctx context.Context, size int) error {
	if size <= 0 {
		size = 10
	}
	var players []model.Player
	err := svc.db.WithContext(ctx).
		Order("balance DESC").
		Limit(size).
		Find(&players).Error
	if err != nil {
		return err
	}
	for _, p := range players {
		if err := svc.cache.ZAdd(ctx, leaderboardKey, float64(p.Balance), p.Username); err != nil {
			return err
		}
	}
	return nil
}

// LeaderboardEntry is one row of the balance leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// Leaderboard reads the cached top balances, falling back to the database
// when the cache has not been populated yet.
func (svc *Service) Leaderboard(ctx context.Context, size int) ([]LeaderboardEntry, error) {
	if size <= 0 {
		size = 10
	}
	names, err := svc.cache.ZRevRange(ctx, leaderboardKey, 0, int64(size-1))
	if err == nil && len(names) > 0 {
		entries := make([]LeaderboardEntry, 0, len(names))
		for _, name := range names {
			score, err := svc.cache.ZScore(ctx, leaderboardKey, name)
			if err != nil {
				continue
			}
			entries = append(entries, LeaderboardEntry{Username: name, Balance: int64(score)})
		}
		return entries, nil
	}

	var players []model.Player
	if err := svc.db.WithContext(ctx).
		Order("balance DESC").
		Limit(size).
		Find(&players).Error; err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{Username: p.Username, Balance: p.Balance})
	}
	return entries, nil
}
