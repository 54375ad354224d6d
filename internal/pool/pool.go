package pool

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Errors
var (
	// ErrPoolDrained is returned when a draw or withdrawal asks for more
	// records than the pool currently holds.
	ErrPoolDrained = errors.New("pool: not enough deposited assets")

	// ErrIndexOutOfRange signals a compaction index past the end of the
	// pool. The callers below always bound their indices first, so seeing
	// this error means an internal invariant broke.
	ErrIndexOutOfRange = errors.New("pool: index out of range")
)

// Record is one deposited asset: the collection contract it belongs to and
// its unique token identifier within that collection.
type Record struct {
	Collection common.Address `json:"collection"`
	TokenID    *big.Int       `json:"token_id"`
}

// Copy returns an independent copy of the record.
func (r Record) Copy() Record {
	return Record{
		Collection: r.Collection,
		TokenID:    new(big.Int).Set(r.TokenID),
	}
}

// Pool is the shared, un-partitioned collection of deposited assets.
// Records live in two parallel dense slices sharing an index; removal swaps
// the last element into the vacated slot and shrinks by one, so membership
// is stable across removals but order is not.
//
// Nothing here detects duplicates: the same (collection, id) pair can be
// appended twice if a caller errs, and box removal deliberately re-appends
// records that are still present (see the lifecycle controller).
type Pool struct {
	mu          sync.RWMutex
	collections []common.Address
	tokenIDs    []*big.Int
}

func New() *Pool {
	return &Pool{}
}

// Deposit appends one record per token id. No-op on empty input.
func (p *Pool) Deposit(collection common.Address, ids []*big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.collections = append(p.collections, collection)
		p.tokenIDs = append(p.tokenIDs, new(big.Int).Set(id))
	}
}

// Restore appends a single record back to the end of the pool. Original
// positions are not recreated.
func (p *Pool) Restore(rec Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collections = append(p.collections, rec.Collection)
	p.tokenIDs = append(p.tokenIDs, new(big.Int).Set(rec.TokenID))
}

// DrawAndRemove performs count draws, each picking an index in
// [0, current length) via pick and removing that record by swap compaction.
// Every draw observes the pool after the previous removal, so no pool
// position is ever returned twice within one batch. Fails with
// ErrPoolDrained before touching anything if the pool holds fewer than
// count records.
func (p *Pool) DrawAndRemove(pick func(bound uint64) uint64, count uint64) ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if uint64(len(p.tokenIDs)) < count {
		return nil, ErrPoolDrained
	}

	drawn := make([]Record, 0, count)
	for i := uint64(0); i < count; i++ {
		idx := pick(uint64(len(p.tokenIDs)))
		rec, err := p.removeAt(int(idx))
		if err != nil {
			return nil, err
		}
		drawn = append(drawn, rec)
	}
	return drawn, nil
}

// Withdraw removes and returns count records, taking position 0 each
// iteration and swap-compacting. Because compaction moves the last record
// into slot 0, the returned sequence is position-0-at-time-of-removal, not
// strict insertion order.
func (p *Pool) Withdraw(count uint64) ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if uint64(len(p.tokenIDs)) < count {
		return nil, ErrPoolDrained
	}

	out := make([]Record, 0, count)
	for i := uint64(0); i < count; i++ {
		rec, err := p.removeAt(0)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// At returns the record at position i without removing it.
func (p *Pool) At(i int) (Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.tokenIDs) {
		return Record{}, ErrIndexOutOfRange
	}
	return Record{Collection: p.collections[i], TokenID: new(big.Int).Set(p.tokenIDs[i])}, nil
}

// Len returns the number of records currently in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tokenIDs)
}

// Records returns a snapshot of the pool in current order.
func (p *Pool) Records() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Record, len(p.tokenIDs))
	for i := range p.tokenIDs {
		out[i] = Record{Collection: p.collections[i], TokenID: new(big.Int).Set(p.tokenIDs[i])}
	}
	return out
}

// removeAt swap-compacts: the last record moves into slot i, both slices
// shrink by one. Caller must hold p.mu.
func (p *Pool) removeAt(i int) (Record, error) {
	n := len(p.tokenIDs)
	if i < 0 || i >= n {
		return Record{}, ErrIndexOutOfRange
	}
	rec := Record{Collection: p.collections[i], TokenID: p.tokenIDs[i]}
	p.collections[i] = p.collections[n-1]
	p.tokenIDs[i] = p.tokenIDs[n-1]
	p.collections = p.collections[:n-1]
	p.tokenIDs = p.tokenIDs[:n-1]
	return rec, nil
}
