package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/KristianPeter/blo-box/internal/access"
	"github.com/KristianPeter/blo-box/internal/draw"
	"github.com/KristianPeter/blo-box/internal/ledger"
	"github.com/KristianPeter/blo-box/internal/lootbox"
	"github.com/KristianPeter/blo-box/internal/merkle"
	"github.com/KristianPeter/blo-box/internal/pool"
	"github.com/KristianPeter/blo-box/internal/registry"
)

const (
	adminHex      = "0x1000000000000000000000000000000000000001"
	openerHex     = "0x2000000000000000000000000000000000000002"
	vaultHex      = "0x00000000000000000000000000000000000b0b05"
	collectionHex = "0x3000000000000000000000000000000000000003"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	acl := access.NewList()
	acl.Grant(common.HexToAddress(adminHex), access.CapabilityAdmin)
	pauser := access.NewSwitch()
	reg := registry.NewMemory()
	rng := draw.NewBlockSource(draw.FixedEnv{Timestamp: 1700000000, Beacon: common.Hash{0xbe}})
	controller := lootbox.New(pool.New(), ledger.New(), reg, acl, pauser, rng, common.HexToAddress(vaultHex))
	return New(controller, reg, acl, pauser)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	var result map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&result)
	return rr.Code, result
}

func seedAssets(t *testing.T, s *Server, n int) {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprint(i + 1)
		code, _ := doJSON(t, s, http.MethodPost, "/registry/mint", RegistryMintRequest{
			Collection: collectionHex,
			TokenID:    ids[i],
			Owner:      adminHex,
		})
		if code != http.StatusOK {
			t.Fatalf("registry mint failed with %d", code)
		}
	}
	code, _ := doJSON(t, s, http.MethodPost, "/pool/deposit", DepositRequest{
		From:       adminHex,
		Collection: collectionHex,
		TokenIDs:   ids,
	})
	if code != http.StatusOK {
		t.Fatalf("deposit failed with %d", code)
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleDeposit_PoolGrows(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 3)

	code, result := doJSON(t, s, http.MethodGet, "/pool", nil)
	if code != http.StatusOK {
		t.Fatalf("pool info failed with %d", code)
	}
	if size := result["size"].(float64); size != 3 {
		t.Errorf("Expected pool size 3, got %v", size)
	}
}

func TestHandleDeposit_Unauthorized(t *testing.T) {
	s := setupTestServer(t)
	doJSON(t, s, http.MethodPost, "/registry/mint", RegistryMintRequest{
		Collection: collectionHex, TokenID: "1", Owner: openerHex,
	})
	code, _ := doJSON(t, s, http.MethodPost, "/pool/deposit", DepositRequest{
		From: openerHex, Collection: collectionHex, TokenIDs: []string{"1"},
	})
	if code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", code)
	}
}

func TestHandleCreateAndOpen(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 2)

	openerAddr := common.HexToAddress(openerHex)
	leaves := []common.Hash{merkle.Leaf(openerAddr, big.NewInt(1))}
	tree := merkle.NewTree(leaves)

	code, result := doJSON(t, s, http.MethodPost, "/box/create", CreateRequest{
		From: adminHex, Count: 1, AssetsPerBox: 1, Root: tree.Root().Hex(),
	})
	if code != http.StatusOK {
		t.Fatalf("create failed with %d: %v", code, result)
	}

	// Hand the unit to the opener directly on the ledger (distribution is
	// out of scope for the HTTP surface).
	s.controller.Ledger().Burn(common.HexToAddress(adminHex), 0, 1)
	s.controller.Ledger().Mint(openerAddr, 0, 1)

	code, result = doJSON(t, s, http.MethodPost, "/box/open", OpenRequest{
		From: openerHex, BoxType: 0, Amount: 1, Proof: []string{},
	})
	if code != http.StatusOK {
		t.Fatalf("open failed with %d: %v", code, result)
	}
	assets := result["assets"].([]interface{})
	if len(assets) != 1 {
		t.Errorf("Expected 1 asset in response, got %d", len(assets))
	}

	code, result = doJSON(t, s, http.MethodGet, "/balance/"+openerHex+"/0", nil)
	if code != http.StatusOK {
		t.Fatalf("balance failed with %d", code)
	}
	if bal := result["balance"].(float64); bal != 0 {
		t.Errorf("Expected balance 0 after open, got %v", bal)
	}
}

func TestHandleCreate_Insufficient(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 1)

	code, _ := doJSON(t, s, http.MethodPost, "/box/create", CreateRequest{
		From: adminHex, Count: 1, AssetsPerBox: 2, Root: common.Hash{}.Hex(),
	})
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", code)
	}
}

func TestHandlePause(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 1)
	doJSON(t, s, http.MethodPost, "/box/create", CreateRequest{
		From: adminHex, Count: 1, AssetsPerBox: 1, Root: common.Hash{}.Hex(),
	})

	// Non-admin cannot pause
	code, _ := doJSON(t, s, http.MethodPost, "/admin/pause", PauseRequest{From: openerHex})
	if code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin pause, got %d", code)
	}

	code, _ = doJSON(t, s, http.MethodPost, "/admin/pause", PauseRequest{From: adminHex})
	if code != http.StatusOK {
		t.Fatalf("pause failed with %d", code)
	}

	code, _ = doJSON(t, s, http.MethodPost, "/box/open", OpenRequest{
		From: adminHex, BoxType: 0, Amount: 1, Proof: nil,
	})
	if code != http.StatusConflict {
		t.Errorf("Expected 409 while paused, got %d", code)
	}

	// Removal stays live while paused
	code, _ = doJSON(t, s, http.MethodPost, "/box/remove", RemoveRequest{
		From: adminHex, BoxType: 0, Amount: 1,
	})
	if code != http.StatusOK {
		t.Errorf("Expected removal to work while paused, got %d", code)
	}
}

func TestHandleBoxType_NotFound(t *testing.T) {
	s := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/box/7", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestHandleEvents(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 2)

	req := httptest.NewRequest(http.MethodGet, "/events?type=asset_deposited", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("events failed with %d", rr.Code)
	}
	var events []map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&events)
	if len(events) != 2 {
		t.Errorf("Expected 2 deposit events, got %d", len(events))
	}
}

func TestHandleWithdraw(t *testing.T) {
	s := setupTestServer(t)
	seedAssets(t, s, 3)

	code, result := doJSON(t, s, http.MethodPost, "/pool/withdraw", WithdrawRequest{
		From: adminHex, To: openerHex, Count: 2,
	})
	if code != http.StatusOK {
		t.Fatalf("withdraw failed with %d: %v", code, result)
	}

	code, result = doJSON(t, s, http.MethodGet, "/pool", nil)
	if code != http.StatusOK {
		t.Fatalf("pool info failed with %d", code)
	}
	if size := result["size"].(float64); size != 1 {
		t.Errorf("Expected pool size 1, got %v", size)
	}
}
