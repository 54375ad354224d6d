package lootbox

import (
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/KristianPeter/blo-box/internal/access"
	"github.com/KristianPeter/blo-box/internal/draw"
	"github.com/KristianPeter/blo-box/internal/ledger"
	"github.com/KristianPeter/blo-box/internal/merkle"
	"github.com/KristianPeter/blo-box/internal/pool"
	"github.com/KristianPeter/blo-box/internal/registry"
)

// Errors
var (
	ErrUnauthorized = &BoxError{"caller lacks administrator capability"}
	ErrInvalidProof = &BoxError{"entitlement proof rejected"}
	ErrPaused       = &BoxError{"box opening is paused"}
)

type BoxError struct {
	msg string
}

func (e *BoxError) Error() string {
	return e.msg
}

// Controller orchestrates deposit, box creation, box opening, box removal
// and pool withdrawal. It is the only component that writes to the asset
// pool and the box ledger together.
//
// Every public method runs under a single mutex, mirroring the serial
// execution model of the reference environment: operations are atomic with
// respect to each other, and each one performs all of its checks before any
// mutation so a failure leaves no partial state.
type Controller struct {
	mu       sync.Mutex
	pool     *pool.Pool
	ledger   *ledger.Ledger
	registry registry.Registry
	access   access.Controller
	pauser   access.Pauser
	rng      draw.Source
	vault    common.Address
	events   *EventStore
}

func New(p *pool.Pool, l *ledger.Ledger, reg registry.Registry, acl access.Controller, pauser access.Pauser, rng draw.Source, vault common.Address) *Controller {
	return &Controller{
		pool:     p,
		ledger:   l,
		registry: reg,
		access:   acl,
		pauser:   pauser,
		rng:      rng,
		vault:    vault,
		events:   NewEventStore(),
	}
}

func (c *Controller) Events() *EventStore {
	return c.events
}

func (c *Controller) Pool() *pool.Pool {
	return c.pool
}

func (c *Controller) Ledger() *ledger.Ledger {
	return c.ledger
}

// Deposit moves the given assets from the caller into the vault and appends
// one pool record per id. The caller must hold the administrator capability
// and must own every asset; ownership is checked up front so a bad id fails
// the whole batch before any transfer. No-op on empty input.
func (c *Controller) Deposit(caller, collection common.Address, ids []*big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.HasCapability(caller, access.CapabilityAdmin) {
		return ErrUnauthorized
	}
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		owner, err := c.registry.OwnerOf(collection, id)
		if err != nil {
			return fmt.Errorf("deposit %s/%s: %w", collection.Hex(), id, err)
		}
		if owner != caller {
			return fmt.Errorf("deposit %s/%s: %w", collection.Hex(), id, registry.ErrNotOwner)
		}
	}

	for _, id := range ids {
		if err := c.registry.Transfer(collection, id, caller, c.vault); err != nil {
			return fmt.Errorf("deposit transfer %s/%s: %w", collection.Hex(), id, err)
		}
		c.events.append(Event{
			Type:       EventAssetDeposited,
			Depositor:  addrPtr(caller),
			Collection: addrPtr(collection),
			AssetID:    bigPtr(id),
		})
	}
	c.pool.Deposit(collection, ids)
	log.Printf("lootbox: %s deposited %d assets from %s", caller.Hex(), len(ids), collection.Hex())
	return nil
}

// CreateBoxTypes registers count new box types, each with the same
// assetsPerBox and entitlement root, and mints exactly one unit of each to
// the caller. The pool must currently hold at least count*assetsPerBox
// records. The check does not reserve those records: a later withdrawal can
// invalidate it before any box of the batch is opened.
func (c *Controller) CreateBoxTypes(caller common.Address, count, assetsPerBox uint64, root common.Hash) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.HasCapability(caller, access.CapabilityAdmin) {
		return nil, ErrUnauthorized
	}
	if uint64(c.pool.Len()) < count*assetsPerBox {
		return nil, pool.ErrPoolDrained
	}

	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		bt := c.ledger.CreateType(assetsPerBox, root)
		c.ledger.Mint(caller, bt.ID, 1)
		c.events.append(Event{
			Type:          EventBoxTypeCreated,
			BoxType:       u64Ptr(bt.ID),
			InitialSupply: 1,
		})
		ids = append(ids, bt.ID)
	}
	log.Printf("lootbox: %s created %d box types (assets per box %d)", caller.Hex(), count, assetsPerBox)
	return ids, nil
}

// Open redeems amount boxes of the given type for the caller: balance
// check, entitlement proof check, burn, then assetsPerBox*amount random
// draws from the pool, each transferred vault -> caller. Returns the drawn
// records. Blocked while paused.
func (c *Controller) Open(caller common.Address, boxType, amount uint64, proof []common.Hash) ([]pool.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pauser.Paused() {
		return nil, ErrPaused
	}

	bt, err := c.ledger.Type(boxType)
	if err != nil {
		return nil, err
	}
	if c.ledger.BalanceOf(caller, boxType) < amount {
		return nil, ledger.ErrInsufficientBalance
	}

	leaf := merkle.Leaf(caller, new(big.Int).SetUint64(amount))
	if !merkle.Verify(bt.EntitlementRoot, leaf, proof) {
		return nil, ErrInvalidProof
	}

	needed := bt.AssetsPerBox * amount
	if uint64(c.pool.Len()) < needed {
		return nil, pool.ErrPoolDrained
	}

	if err := c.ledger.Burn(caller, boxType, amount); err != nil {
		return nil, err
	}

	drawn, err := c.pool.DrawAndRemove(func(bound uint64) uint64 {
		return c.rng.NextIndex(caller, bound)
	}, needed)
	if err != nil {
		return nil, err
	}
	for _, rec := range drawn {
		if err := c.registry.Transfer(rec.Collection, rec.TokenID, c.vault, caller); err != nil {
			// The vault owns every pooled asset by construction; a failed
			// transfer here means the pool and the registry disagree.
			return nil, fmt.Errorf("open: vault transfer %s/%s: %w", rec.Collection.Hex(), rec.TokenID, err)
		}
	}

	c.events.append(Event{
		Type:    EventBoxOpened,
		BoxType: u64Ptr(boxType),
		Opener:  addrPtr(caller),
		Amount:  amount,
		Proof:   append([]common.Hash(nil), proof...),
	})
	log.Printf("lootbox: %s opened %d of box type %d (%d assets)", caller.Hex(), amount, boxType, needed)
	return drawn, nil
}

// RemoveBoxes burns amount unopened units of the given type from the
// caller's balance, then re-appends assetsPerBox*amount pool records chosen
// at fresh random indices into the current pool.
//
// No assets were ever reserved for these boxes, so there is nothing
// specific to give back: the records re-appended are ones already present,
// and the pool ends up with duplicate entries. This reproduces the
// reference behavior verbatim; see DESIGN.md before changing it.
func (c *Controller) RemoveBoxes(caller common.Address, boxType, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.HasCapability(caller, access.CapabilityAdmin) {
		return ErrUnauthorized
	}

	bt, err := c.ledger.Type(boxType)
	if err != nil {
		return err
	}
	if c.ledger.BalanceOf(caller, boxType) < amount {
		return ledger.ErrInsufficientBalance
	}
	if c.pool.Len() == 0 && bt.AssetsPerBox*amount > 0 {
		return pool.ErrPoolDrained
	}

	if err := c.ledger.Burn(caller, boxType, amount); err != nil {
		return err
	}

	for i := uint64(0); i < bt.AssetsPerBox*amount; i++ {
		idx := c.rng.NextIndex(caller, uint64(c.pool.Len()))
		rec, err := c.pool.At(int(idx))
		if err != nil {
			return err
		}
		c.pool.Restore(rec)
	}

	c.events.append(Event{
		Type:    EventBoxesRemoved,
		BoxType: u64Ptr(boxType),
		Opener:  addrPtr(caller),
		Amount:  amount,
	})
	log.Printf("lootbox: %s removed %d of box type %d", caller.Hex(), amount, boxType)
	return nil
}

// WithdrawAssets removes count records from the pool front (position 0,
// re-evaluated after each swap compaction) and transfers each from the
// vault to dest. Administrator only; unaffected by pause.
func (c *Controller) WithdrawAssets(caller, dest common.Address, count uint64) ([]pool.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.access.HasCapability(caller, access.CapabilityAdmin) {
		return nil, ErrUnauthorized
	}

	out, err := c.pool.Withdraw(count)
	if err != nil {
		return nil, err
	}
	for _, rec := range out {
		if err := c.registry.Transfer(rec.Collection, rec.TokenID, c.vault, dest); err != nil {
			return nil, fmt.Errorf("withdraw: vault transfer %s/%s: %w", rec.Collection.Hex(), rec.TokenID, err)
		}
	}
	log.Printf("lootbox: %s withdrew %d pool assets to %s", caller.Hex(), count, dest.Hex())
	return out, nil
}
