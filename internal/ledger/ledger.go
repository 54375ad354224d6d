package ledger

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientBalance is returned when a burn asks for more units than
// the holder's recorded balance for that box type.
var ErrInsufficientBalance = errors.New("ledger: insufficient box balance")

var ErrUnknownBoxType = errors.New("ledger: unknown box type")

// BoxType is a category of redeemable unit. AssetsPerBox and
// EntitlementRoot are fixed at creation and never change. Supply is set to
// 1 at creation and never decremented afterwards, matching the reference
// source: it records fixed capacity per type, not live circulation. The
// live count of unopened units is the balance table, not this field.
type BoxType struct {
	ID              uint64      `json:"id"`
	AssetsPerBox    uint64      `json:"assets_per_box"`
	EntitlementRoot common.Hash `json:"entitlement_root"`
	Supply          uint64      `json:"supply"`
}

// Ledger owns box-type metadata and the fungible-unit balances representing
// ownership of unopened boxes, keyed by (holder, box type).
type Ledger struct {
	mu       sync.RWMutex
	nextID   uint64
	types    map[uint64]*BoxType
	balances map[common.Address]map[uint64]uint64
}

func New() *Ledger {
	return &Ledger{
		types:    make(map[uint64]*BoxType),
		balances: make(map[common.Address]map[uint64]uint64),
	}
}

// CreateType registers a new box type under the next id. Ids are assigned
// monotonically and never reused.
func (l *Ledger) CreateType(assetsPerBox uint64, root common.Hash) BoxType {
	l.mu.Lock()
	defer l.mu.Unlock()
	bt := &BoxType{
		ID:              l.nextID,
		AssetsPerBox:    assetsPerBox,
		EntitlementRoot: root,
		Supply:          1,
	}
	l.types[bt.ID] = bt
	l.nextID++
	return *bt
}

// Type returns a copy of the box type's metadata.
func (l *Ledger) Type(id uint64) (BoxType, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bt, ok := l.types[id]
	if !ok {
		return BoxType{}, ErrUnknownBoxType
	}
	return *bt, nil
}

// Types returns a snapshot of all box types in id order of creation.
func (l *Ledger) Types() []BoxType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]BoxType, 0, len(l.types))
	for id := uint64(0); id < l.nextID; id++ {
		if bt, ok := l.types[id]; ok {
			out = append(out, *bt)
		}
	}
	return out
}

func (l *Ledger) BalanceOf(holder common.Address, boxType uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[holder][boxType]
}

func (l *Ledger) Mint(holder common.Address, boxType uint64, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[holder] == nil {
		l.balances[holder] = make(map[uint64]uint64)
	}
	l.balances[holder][boxType] += amount
}

func (l *Ledger) Burn(holder common.Address, boxType uint64, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[holder][boxType] < amount {
		return ErrInsufficientBalance
	}
	l.balances[holder][boxType] -= amount
	return nil
}
