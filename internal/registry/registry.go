package registry

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownAsset = errors.New("registry: unknown asset")
	ErrNotOwner     = errors.New("registry: transfer from non-owner")
	ErrAssetExists  = errors.New("registry: asset already minted")
)

// Registry is the external asset-registry collaborator: per-collection
// ownership of unique tokens. The lifecycle controller assumes Transfer is
// atomic; it either fully succeeds or fails the enclosing operation.
type Registry interface {
	OwnerOf(collection common.Address, id *big.Int) (common.Address, error)
	Transfer(collection common.Address, id *big.Int, from, to common.Address) error
}

// Memory is an in-memory Registry for local deployments and tests:
// a mutex-guarded ownership table keyed by collection then token id.
type Memory struct {
	mu     sync.RWMutex
	owners map[common.Address]map[string]common.Address
}

func NewMemory() *Memory {
	return &Memory{owners: make(map[common.Address]map[string]common.Address)}
}

// Mint records a fresh asset owned by owner. Used to seed collections.
func (m *Memory) Mint(collection common.Address, id *big.Int, owner common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id.String()
	if m.owners[collection] == nil {
		m.owners[collection] = make(map[string]common.Address)
	}
	if _, ok := m.owners[collection][key]; ok {
		return ErrAssetExists
	}
	m.owners[collection][key] = owner
	return nil
}

func (m *Memory) OwnerOf(collection common.Address, id *big.Int) (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[collection][id.String()]
	if !ok {
		return common.Address{}, ErrUnknownAsset
	}
	return owner, nil
}

func (m *Memory) Transfer(collection common.Address, id *big.Int, from, to common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[collection][id.String()]
	if !ok {
		return ErrUnknownAsset
	}
	if owner != from {
		return ErrNotOwner
	}
	m.owners[collection][id.String()] = to
	return nil
}
