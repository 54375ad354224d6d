package access

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// CapabilityAdmin gates deposit, box creation, box removal, pool withdrawal
// and the pause switches. There is no role hierarchy: an account either
// holds the capability or it does not.
const CapabilityAdmin = "administrator"

// Controller is the access-control collaborator.
type Controller interface {
	HasCapability(account common.Address, capability string) bool
}

// Pauser is the pause collaborator. The paused state gates only box
// opening; privileged paths stay live while paused.
type Pauser interface {
	Paused() bool
}

// List is a mutex-guarded capability grant table.
type List struct {
	mu     sync.RWMutex
	grants map[common.Address]map[string]bool
}

func NewList() *List {
	return &List{grants: make(map[common.Address]map[string]bool)}
}

func (l *List) Grant(account common.Address, capability string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.grants[account] == nil {
		l.grants[account] = make(map[string]bool)
	}
	l.grants[account][capability] = true
}

func (l *List) Revoke(account common.Address, capability string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.grants[account], capability)
}

func (l *List) HasCapability(account common.Address, capability string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.grants[account][capability]
}

// Switch is a boolean pause gate.
type Switch struct {
	mu     sync.RWMutex
	paused bool
}

func NewSwitch() *Switch {
	return &Switch{}
}

func (s *Switch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *Switch) Unpause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *Switch) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}
