package lootbox

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

type EventType string

const (
	EventAssetDeposited EventType = "asset_deposited"
	EventBoxTypeCreated EventType = "box_type_created"
	EventBoxOpened      EventType = "box_opened"
	EventBoxesRemoved   EventType = "boxes_removed"
)

// Event is one emitted notification for external observers and indexers.
// Only the fields relevant to the event type are populated.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	Depositor  *common.Address `json:"depositor,omitempty"`
	Collection *common.Address `json:"collection,omitempty"`
	AssetID    *hexutil.Big    `json:"asset_id,omitempty"`

	BoxType       *uint64         `json:"box_type,omitempty"`
	InitialSupply uint64          `json:"initial_supply,omitempty"`
	Opener        *common.Address `json:"opener,omitempty"`
	Amount        uint64          `json:"amount,omitempty"`
	Proof         []common.Hash   `json:"proof,omitempty"`
}

// EventStore keeps emitted events in memory, append-only.
type EventStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) append(ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of all events in emission order.
func (s *EventStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	for i := range out {
		out[i].Proof = append([]common.Hash(nil), out[i].Proof...)
	}
	return out
}

// ByType returns a copy of all events of one type, in emission order.
func (s *EventStore) ByType(t EventType) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == t {
			ev.Proof = append([]common.Hash(nil), ev.Proof...)
			out = append(out, ev)
		}
	}
	return out
}

func addrPtr(a common.Address) *common.Address { return &a }
func u64Ptr(v uint64) *uint64                  { return &v }
func bigPtr(v *big.Int) *hexutil.Big           { return (*hexutil.Big)(new(big.Int).Set(v)) }
