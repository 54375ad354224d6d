package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"

	"github.com/KristianPeter/blo-box/internal/access"
	"github.com/KristianPeter/blo-box/internal/ledger"
	"github.com/KristianPeter/blo-box/internal/lootbox"
	"github.com/KristianPeter/blo-box/internal/pool"
	"github.com/KristianPeter/blo-box/internal/registry"
)

// Server exposes the loot box engine over HTTP. Caller identity travels in
// the request body ("from"); there is no signature scheme here, the daemon
// is meant to sit behind whatever authenticates its operators.
type Server struct {
	controller *lootbox.Controller
	registry   *registry.Memory
	acl        *access.List
	pauser     *access.Switch
	router     *mux.Router
}

func New(controller *lootbox.Controller, reg *registry.Memory, acl *access.List, pauser *access.Switch) *Server {
	s := &Server{
		controller: controller,
		registry:   reg,
		acl:        acl,
		pauser:     pauser,
		router:     mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Router returns the HTTP router for testing
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	// Pool endpoints
	s.router.HandleFunc("/pool", s.handlePoolInfo).Methods("GET")
	s.router.HandleFunc("/pool/deposit", s.handleDeposit).Methods("POST")
	s.router.HandleFunc("/pool/withdraw", s.handleWithdraw).Methods("POST")

	// Box endpoints
	s.router.HandleFunc("/box/create", s.handleCreate).Methods("POST")
	s.router.HandleFunc("/box/open", s.handleOpen).Methods("POST")
	s.router.HandleFunc("/box/remove", s.handleRemove).Methods("POST")
	s.router.HandleFunc("/box/{id}", s.handleBoxType).Methods("GET")
	s.router.HandleFunc("/balance/{address}/{boxType}", s.handleBalance).Methods("GET")

	// Admin switches
	s.router.HandleFunc("/admin/pause", s.handlePause).Methods("POST")
	s.router.HandleFunc("/admin/unpause", s.handleUnpause).Methods("POST")

	// Registry seeding (local deployments)
	s.router.HandleFunc("/registry/mint", s.handleRegistryMint).Methods("POST")
	s.router.HandleFunc("/registry/owner/{collection}/{id}", s.handleRegistryOwner).Methods("GET")

	// Observability
	s.router.HandleFunc("/events", s.handleEvents).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("lootboxd starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// writeErr maps engine errors onto HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, lootbox.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, lootbox.ErrPaused):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownBoxType), errors.Is(err, registry.ErrUnknownAsset):
		status = http.StatusNotFound
	case errors.Is(err, pool.ErrIndexOutOfRange):
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

func parseIDs(raw []string) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, len(raw))
	for _, r := range raw {
		id, ok := new(big.Int).SetString(r, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Handler implementations

func (s *Server) handlePoolInfo(w http.ResponseWriter, r *http.Request) {
	p := s.controller.Pool()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"size":    p.Len(),
		"records": p.Records(),
	})
}

type DepositRequest struct {
	From       string   `json:"from"`
	Collection string   `json:"collection"`
	TokenIDs   []string `json:"token_ids"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids, err := parseIDs(req.TokenIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.controller.Deposit(common.HexToAddress(req.From), common.HexToAddress(req.Collection), ids); err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

type WithdrawRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count uint64 `json:"count"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := s.controller.WithdrawAssets(common.HexToAddress(req.From), common.HexToAddress(req.To), req.Count)
	if err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "withdrawn": out})
}

type CreateRequest struct {
	From         string `json:"from"`
	Count        uint64 `json:"count"`
	AssetsPerBox uint64 `json:"assets_per_box"`
	Root         string `json:"entitlement_root"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ids, err := s.controller.CreateBoxTypes(common.HexToAddress(req.From), req.Count, req.AssetsPerBox, common.HexToHash(req.Root))
	if err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "box_types": ids})
}

type OpenRequest struct {
	From    string   `json:"from"`
	BoxType uint64   `json:"box_type"`
	Amount  uint64   `json:"amount"`
	Proof   []string `json:"proof"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	proof := make([]common.Hash, 0, len(req.Proof))
	for _, p := range req.Proof {
		proof = append(proof, common.HexToHash(p))
	}
	drawn, err := s.controller.Open(common.HexToAddress(req.From), req.BoxType, req.Amount, proof)
	if err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "assets": drawn})
}

type RemoveRequest struct {
	From    string `json:"from"`
	BoxType uint64 `json:"box_type"`
	Amount  uint64 `json:"amount"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.controller.RemoveBoxes(common.HexToAddress(req.From), req.BoxType, req.Amount); err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleBoxType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid box type id", http.StatusBadRequest)
		return
	}
	bt, err := s.controller.Ledger().Type(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(bt)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	boxType, err := strconv.ParseUint(vars["boxType"], 10, 64)
	if err != nil {
		http.Error(w, "invalid box type id", http.StatusBadRequest)
		return
	}
	holder := common.HexToAddress(vars["address"])
	json.NewEncoder(w).Encode(map[string]interface{}{
		"address":  holder.Hex(),
		"box_type": boxType,
		"balance":  s.controller.Ledger().BalanceOf(holder, boxType),
	})
}

type PauseRequest struct {
	From string `json:"from"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleSwitch(w, r, true)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.handleSwitch(w, r, false)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request, pause bool) {
	var req PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.acl.HasCapability(common.HexToAddress(req.From), access.CapabilityAdmin) {
		writeErr(w, lootbox.ErrUnauthorized)
		return
	}
	if pause {
		s.pauser.Pause()
	} else {
		s.pauser.Unpause()
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "paused": s.pauser.Paused()})
}

type RegistryMintRequest struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner"`
}

func (s *Server) handleRegistryMint(w http.ResponseWriter, r *http.Request) {
	var req RegistryMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, ok := new(big.Int).SetString(req.TokenID, 10)
	if !ok {
		http.Error(w, "invalid token id", http.StatusBadRequest)
		return
	}
	if err := s.registry.Mint(common.HexToAddress(req.Collection), id, common.HexToAddress(req.Owner)); err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleRegistryOwner(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, ok := new(big.Int).SetString(vars["id"], 10)
	if !ok {
		http.Error(w, "invalid token id", http.StatusBadRequest)
		return
	}
	owner, err := s.registry.OwnerOf(common.HexToAddress(vars["collection"]), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"owner":    owner.Hex(),
		"token_id": (*hexutil.Big)(id).String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.controller.Events().Events()
	if t := r.URL.Query().Get("type"); t != "" {
		events = s.controller.Events().ByType(lootbox.EventType(t))
	}
	json.NewEncoder(w).Encode(events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pool_size": s.controller.Pool().Len(),
		"box_types": len(s.controller.Ledger().Types()),
		"paused":    s.pauser.Paused(),
	})
}
