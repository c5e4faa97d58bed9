package drop

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/lonely-fr/perofish-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoItemsAvailable is returned when no catalog item is eligible for a draw.
var ErrNoItemsAvailable = errors.New("drop: no items available")

// Mode selects which weight table a draw uses.
type Mode string

const (
	// ModeNormal heavily favors common tiers.
	ModeNormal Mode = "normal"
	// ModeLimited is the flatter table used while the fishing window is open.
	ModeLimited Mode = "limited"
)

// WeightTable maps a rarity tier to its draw weight.
type WeightTable map[string]int

// Engine draws catalog items by weighted rarity. Unique items whose single
// instance is already claimed are excluded from every draw.
type Engine struct {
	db      *gorm.DB
	weights map[Mode]WeightTable
	mu      sync.Mutex // guards rng
	rng     *mrand.Rand
	logger  *zap.Logger
}

// NewEngine creates an Engine. Pass a nil rng to get a crypto-seeded one.
func NewEngine(db *gorm.DB, normal, limited WeightTable, rng *mrand.Rand, logger *zap.Logger) *Engine {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}
	return &Engine{
		db: db,
		weights: map[Mode]WeightTable{
			ModeNormal:  normal,
			ModeLimited: limited,
		},
		rng:    rng,
		logger: logger,
	}
}

// Draw selects one catalog item of the given type. bonus is the per-user
// additive rarity weight (from the rare_fish_chance upgrade); items whose
// adjusted weight is not positive are excluded from the pool.
func (e *Engine) Draw(ctx context.Context, itemType string, mode Mode, bonus int) (*model.ItemDef, error) {
	var defs []model.ItemDef
	err := e.db.WithContext(ctx).
		Where("type = ?", itemType).
		Where("is_unique = ? OR caught = ?", false, false).
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	return e.pick(defs, mode, bonus)
}

// DrawTx is Draw against an open transaction, so the caller can claim a
// unique item and create the inventory instance in the same unit of work.
func (e *Engine) DrawTx(tx *gorm.DB, itemType string, mode Mode, bonus int) (*model.ItemDef, error) {
	var defs []model.ItemDef
	err := tx.
		Where("type = ?", itemType).
		Where("is_unique = ? OR caught = ?", false, false).
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	return e.pick(defs, mode, bonus)
}

// pick runs the weighted draw over eligible defs: cumulative weight sums
// and a single uniform roll, resolved by binary search. Equivalent to
// materializing weight copies of each item without the allocation.
func (e *Engine) pick(defs []model.ItemDef, mode Mode, bonus int) (*model.ItemDef, error) {
	table, ok := e.weights[mode]
	if !ok {
		table = e.weights[ModeNormal]
	}

	eligible := make([]model.ItemDef, 0, len(defs))
	cumulative := make([]int, 0, len(defs))
	total := 0
	for _, def := range defs {
		w := table[def.Rarity] + bonus
		if w <= 0 {
			continue
		}
		total += w
		eligible = append(eligible, def)
		cumulative = append(cumulative, total)
	}
	if total == 0 {
		return nil, ErrNoItemsAvailable
	}

	e.mu.Lock()
	roll := e.rng.Intn(total)
	e.mu.Unlock()

	lo, hi := 0, len(cumulative)-1
	for lo < hi {
		mid := (lo + hi) >> 1
		if roll < cumulative[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	def := eligible[lo]
	return &def, nil
}

// BonusCatches rolls the extra-catch trials for one catch action. Each of
// the up-to-max attempts is an independent Bernoulli trial whose success
// chance starts at level×0.1% (capped at 100%) and decays by 0.1% per
// attempt within the action.
func (e *Engine) BonusCatches(level, max int) int {
	if level <= 0 || max <= 0 {
		return 0
	}
	p := float64(level) * 0.001
	if p > 1 {
		p = 1
	}
	n := 0
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < max; i++ {
		chance := p - float64(i)*0.001
		if chance <= 0 {
			break
		}
		if e.rng.Float64() < chance {
			n++
		}
	}
	return n
}
