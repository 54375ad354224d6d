package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var holder = common.HexToAddress("0x1234")

func TestCreateType_MonotonicIDs(t *testing.T) {
	l := New()
	root := common.HexToHash("0x01")

	a := l.CreateType(3, root)
	b := l.CreateType(3, root)
	if a.ID != 0 || b.ID != 1 {
		t.Errorf("Expected ids 0 and 1, got %d and %d", a.ID, b.ID)
	}
	if a.AssetsPerBox != 3 || a.EntitlementRoot != root {
		t.Error("Box type attributes not stored")
	}
}

func TestType_Unknown(t *testing.T) {
	l := New()
	if _, err := l.Type(0); !errors.Is(err, ErrUnknownBoxType) {
		t.Errorf("Expected ErrUnknownBoxType, got %v", err)
	}
}

func TestMintBurn(t *testing.T) {
	l := New()
	bt := l.CreateType(1, common.Hash{})

	l.Mint(holder, bt.ID, 2)
	if got := l.BalanceOf(holder, bt.ID); got != 2 {
		t.Errorf("Expected balance 2, got %d", got)
	}

	if err := l.Burn(holder, bt.ID, 1); err != nil {
		t.Fatalf("Burn failed: %v", err)
	}
	if got := l.BalanceOf(holder, bt.ID); got != 1 {
		t.Errorf("Expected balance 1, got %d", got)
	}
}

func TestBurn_Insufficient(t *testing.T) {
	l := New()
	bt := l.CreateType(1, common.Hash{})
	l.Mint(holder, bt.ID, 1)

	if err := l.Burn(holder, bt.ID, 2); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.BalanceOf(holder, bt.ID); got != 1 {
		t.Errorf("Failed burn must not change the balance, got %d", got)
	}

	// Unknown holder burns fail the same way
	if err := l.Burn(common.HexToAddress("0x9"), bt.ID, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}
}

func TestSupply_NeverDecremented(t *testing.T) {
	l := New()
	bt := l.CreateType(1, common.Hash{})
	l.Mint(holder, bt.ID, 1)

	if err := l.Burn(holder, bt.ID, 1); err != nil {
		t.Fatalf("Burn failed: %v", err)
	}
	after, err := l.Type(bt.ID)
	if err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	// Supply records fixed capacity, not live circulation.
	if after.Supply != 1 {
		t.Errorf("Supply must stay at 1 after burns, got %d", after.Supply)
	}
}

func TestTypes_Snapshot(t *testing.T) {
	l := New()
	l.CreateType(1, common.Hash{1})
	l.CreateType(2, common.Hash{2})

	types := l.Types()
	if len(types) != 2 {
		t.Fatalf("Expected 2 types, got %d", len(types))
	}
	if types[0].ID != 0 || types[1].ID != 1 {
		t.Error("Types must come back in creation order")
	}
}
