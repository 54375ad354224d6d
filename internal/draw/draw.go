// Package draw selects pool indices for distribution and give-back.
//
// The reference source mixes the current block timestamp, the block's
// randomness beacon value and the calling account through keccak256 and
// reduces modulo the bound. That value is publicly reconstructible once the
// block is known, and a caller who controls submission timing (or the block
// producer) can preview outcomes before committing. It is pseudo-random,
// NOT adversary-resistant. The Source interface exists so a stronger
// generator can replace it without touching the lifecycle controller.
package draw

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Env is the observable block environment a draw derives from.
type Env struct {
	Timestamp uint64
	Beacon    common.Hash
}

// EnvReader supplies the environment for the next draw. Tests inject fixed
// values; the daemon uses a wall-clock reader.
type EnvReader interface {
	Env() Env
}

// Source produces an index in [0, bound) for the given caller.
// Behavior is undefined for bound == 0; callers check pool length first.
type Source interface {
	NextIndex(caller common.Address, bound uint64) uint64
}

// BlockSource is the reference implementation described above. Given a
// fixed (timestamp, beacon, caller) triple the result is deterministic.
type BlockSource struct {
	env EnvReader
}

func NewBlockSource(env EnvReader) *BlockSource {
	return &BlockSource{env: env}
}

func (s *BlockSource) NextIndex(caller common.Address, bound uint64) uint64 {
	e := s.env.Env()
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[7-i] = byte(e.Timestamp >> (8 * i))
	}
	digest := crypto.Keccak256(ts[:], e.Beacon.Bytes(), caller.Bytes())
	return new(big.Int).Mod(
		new(big.Int).SetBytes(digest),
		new(big.Int).SetUint64(bound),
	).Uint64()
}

// FixedEnv returns the same environment on every read.
type FixedEnv Env

func (f FixedEnv) Env() Env { return Env(f) }

// ClockEnv reads the wall clock for the timestamp and rolls the beacon
// forward by hashing it each read. Standalone deployments have no real
// randomness beacon; this keeps consecutive draws from reusing one digest
// while staying exactly as weak as the source it stands in for.
type ClockEnv struct {
	mu     sync.Mutex
	beacon common.Hash
}

func NewClockEnv(seed common.Hash) *ClockEnv {
	return &ClockEnv{beacon: seed}
}

func (c *ClockEnv) Env() Env {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beacon = common.BytesToHash(crypto.Keccak256(c.beacon.Bytes()))
	return Env{Timestamp: uint64(time.Now().Unix()), Beacon: c.beacon}
}
