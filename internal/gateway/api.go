// ABOUTME: HTTP API handlers exposing the engine: account creation, signed entry, triggers and queries
// ABOUTME: Byte fields travel as 0x-hex strings; errors carry a stable kind next to the message

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/engine"
	"github.com/2389/keyward/internal/store"
)

// CreateAccountRequest is the JSON request body for POST /api/accounts.
// Keys is ordered admin, operation keys, assist.
type CreateAccountRequest struct {
	Address string   `json:"address"`
	Storage string   `json:"storage"`
	Modules []string `json:"modules"`
	Keys    []string `json:"keys"`
	Backups []string `json:"backups,omitempty"`
}

// EnterRequest is the JSON request body for POST /api/enter.
type EnterRequest struct {
	Module    string `json:"module"`
	CallData  string `json:"call_data"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce,omitempty"`
}

// EnterDualRequest is the JSON request body for POST /api/enter/dual.
// Index 0 is the client admin, index 1 the backup.
type EnterDualRequest struct {
	Module     string    `json:"module"`
	CallData   string    `json:"call_data"`
	Signatures [2]string `json:"signatures"`
	Nonces     [2]string `json:"nonces"`
}

// TriggerRequest is the JSON request body for POST /api/trigger.
type TriggerRequest struct {
	CallData string `json:"call_data"`
}

// ExecuteProposalRequest is the JSON request body for POST /api/proposals/execute.
type ExecuteProposalRequest struct {
	Client       string `json:"client"`
	Proposer     string `json:"proposer"`
	FunctionData string `json:"function_data"`
}

// ResultResponse describes an accepted signed or permissionless operation.
type ResultResponse struct {
	Account string   `json:"account"`
	Method  string   `json:"method"`
	Signers []string `json:"signers,omitempty"`
}

// KeyResponse is one key slot.
type KeyResponse struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Address string `json:"address"`
	Status  string `json:"status"`
}

// BackupResponse is one backup registry entry.
type BackupResponse struct {
	Index       int    `json:"index"`
	Address     string `json:"address"`
	EffectiveAt string `json:"effective_at"`
	ExpiryAt    string `json:"expiry_at,omitempty"`
}

// TimelockResponse is one pending delayed action.
type TimelockResponse struct {
	Selector   string `json:"selector"`
	Method     string `json:"method,omitempty"`
	DataHash   string `json:"data_hash"`
	EligibleAt string `json:"eligible_at"`
}

// ProposalResponse is one pending recovery proposal.
type ProposalResponse struct {
	Proposer       string `json:"proposer"`
	Selector       string `json:"selector"`
	Method         string `json:"method,omitempty"`
	DataHash       string `json:"data_hash"`
	ProposerBackup string `json:"proposer_backup"`
	ApproverBackup string `json:"approver_backup,omitempty"`
	Approved       bool   `json:"approved"`
	CreatedAt      string `json:"created_at"`
}

// AccountResponse is the JSON view of an account.
type AccountResponse struct {
	Address   string             `json:"address"`
	Manager   string             `json:"manager"`
	Storage   string             `json:"storage"`
	Modules   []string           `json:"modules"`
	Keys      []KeyResponse      `json:"keys"`
	Frozen    bool               `json:"frozen"`
	Backups   []BackupResponse   `json:"backups"`
	Timelocks []TimelockResponse `json:"timelocks"`
	Proposals []ProposalResponse `json:"proposals"`
	CreatedAt string             `json:"created_at"`
}

// AuditEntryResponse is one audit log entry.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	Account   string         `json:"account"`
	Actor     string         `json:"actor"`
	Module    string         `json:"module,omitempty"`
	Action    string         `json:"action"`
	Method    string         `json:"method"`
	Timestamp string         `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// ModuleResponse is the JSON response for GET /api/modules/{address}.
type ModuleResponse struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
}

// NonceResponse is the JSON response for GET /api/nonces/{signer}/{nonce}.
type NonceResponse struct {
	Signer string `json:"signer"`
	Nonce  string `json:"nonce"`
	Used   bool   `json:"used"`
}

// errBadRequest marks malformed request input, before the engine sees it.
var errBadRequest = errors.New("bad request")

func (g *Gateway) registerAPIRoutes(mux *http.ServeMux) {
	create := http.Handler(http.HandlerFunc(g.handleCreateAccount))
	if g.verifier != nil {
		create = auth.RequireOperator(g.verifier, auth.ScopeInitAccount)(create)
	}
	mux.Handle("POST /api/accounts", create)

	mux.HandleFunc("GET /api/accounts/{address}", g.handleGetAccount)
	mux.HandleFunc("GET /api/accounts/{address}/keys/{index}", g.handleGetKey)
	mux.HandleFunc("GET /api/accounts/{address}/backups/{index}", g.handleGetBackup)
	mux.HandleFunc("GET /api/accounts/{address}/timelocks/{selector}", g.handleGetTimelock)
	mux.HandleFunc("GET /api/accounts/{address}/proposals/{proposer}/{selector}", g.handleGetProposal)
	mux.HandleFunc("GET /api/nonces/{signer}/{nonce}", g.handleGetNonce)
	mux.HandleFunc("GET /api/modules/{address}", g.handleGetModule)
	mux.HandleFunc("GET /api/audit", g.handleAuditLog)

	mux.HandleFunc("POST /api/enter", g.handleEnter)
	mux.HandleFunc("POST /api/enter/dual", g.handleEnterDual)
	mux.HandleFunc("POST /api/trigger", g.handleTrigger)
	mux.HandleFunc("POST /api/proposals/execute", g.handleExecuteProposal)
}

// handleCreateAccount handles POST /api/accounts.
func (g *Gateway) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeBody(w, r, &req); err != nil {
		g.fail(w, "init_account", err)
		return
	}
	in, err := parseCreateRequest(&req)
	if err != nil {
		g.fail(w, "init_account", err)
		return
	}
	in.Operator = auth.OperatorFromContext(r.Context())
	if in.Operator == "" {
		in.Operator = "anonymous"
	}

	acct, err := g.engine.InitAccount(r.Context(), in)
	g.metrics.Observe("init_account", err)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse(acct, time.Now()))
}

func parseCreateRequest(req *CreateAccountRequest) (engine.InitRequest, error) {
	var in engine.InitRequest
	var err error
	if in.Address, err = parseAddress("address", req.Address); err != nil {
		return in, err
	}
	if in.Storage, err = parseAddress("storage", req.Storage); err != nil {
		return in, err
	}
	if in.Modules, err = parseAddresses("modules", req.Modules); err != nil {
		return in, err
	}
	if in.Keys, err = parseAddresses("keys", req.Keys); err != nil {
		return in, err
	}
	if in.Backups, err = parseAddresses("backups", req.Backups); err != nil {
		return in, err
	}
	return in, nil
}

// handleGetAccount handles GET /api/accounts/{address}.
func (g *Gateway) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", r.PathValue("address"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	acct, err := g.engine.Account(r.Context(), addr)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct, time.Now()))
}

// handleGetKey handles GET /api/accounts/{address}/keys/{index}.
func (g *Gateway) handleGetKey(w http.ResponseWriter, r *http.Request) {
	addr, index, err := parseAddressAndIndex(r)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	slot, role, err := g.engine.Key(r.Context(), addr, index)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyResponse(index, role, slot))
}

// handleGetBackup handles GET /api/accounts/{address}/backups/{index}.
func (g *Gateway) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	addr, index, err := parseAddressAndIndex(r)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	b, err := g.engine.Backup(r.Context(), addr, index)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backupResponse(index, b))
}

// handleGetTimelock handles GET /api/accounts/{address}/timelocks/{selector}.
func (g *Gateway) handleGetTimelock(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", r.PathValue("address"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	sel, err := parseSelector(r.PathValue("selector"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	t, err := g.engine.Timelock(r.Context(), addr, sel)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timelockResponse(t))
}

// handleGetProposal handles GET /api/accounts/{address}/proposals/{proposer}/{selector}.
func (g *Gateway) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	client, err := parseAddress("address", r.PathValue("address"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	proposer, err := parseAddress("proposer", r.PathValue("proposer"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	sel, err := parseSelector(r.PathValue("selector"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	p, err := g.engine.Proposal(r.Context(), client, proposer, sel)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

// handleGetNonce handles GET /api/nonces/{signer}/{nonce}.
func (g *Gateway) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	signer, err := parseAddress("signer", r.PathValue("signer"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	nonce, err := parseNonce(r.PathValue("nonce"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	if nonce == nil {
		g.sendEngineError(w, fmt.Errorf("%w: nonce is required", errBadRequest))
		return
	}
	used, err := g.engine.NonceUsed(r.Context(), signer, nonce)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Signer: signer.Hex(), Nonce: nonce.Dec(), Used: used})
}

// handleGetModule handles GET /api/modules/{address}.
func (g *Gateway) handleGetModule(w http.ResponseWriter, r *http.Request) {
	id, err := parseAddress("address", r.PathValue("address"))
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ModuleResponse{Address: id.Hex(), Authorized: g.engine.ModuleAuthorized(id)})
}

// handleAuditLog handles GET /api/audit.
// Supports ?account=, ?action=, ?method=, ?since=, ?until= (RFC 3339) and ?limit=.
func (g *Gateway) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	f, err := parseAuditFilter(r)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	entries, err := g.engine.AuditLog(r.Context(), f)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	resp := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := AuditEntryResponse{
			ID:        e.ID,
			Account:   e.Account.Hex(),
			Actor:     e.Actor,
			Action:    string(e.Action),
			Method:    e.Method,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Detail:    e.Detail,
		}
		if e.Module != (common.Address{}) {
			item.Module = e.Module.Hex()
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAuditFilter(r *http.Request) (store.AuditFilter, error) {
	var f store.AuditFilter
	q := r.URL.Query()
	if v := q.Get("account"); v != "" {
		addr, err := parseAddress("account", v)
		if err != nil {
			return f, err
		}
		f.Account = &addr
	}
	if v := q.Get("action"); v != "" {
		a := store.AuditAction(v)
		if !slices.Contains(store.ValidAuditActions, a) {
			return f, fmt.Errorf("%w: unknown audit action %q", errBadRequest, v)
		}
		f.Action = &a
	}
	if v := q.Get("method"); v != "" {
		f.Method = &v
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("%w: %s must be RFC 3339", errBadRequest, p.name)
		}
		*p.dst = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
		}
		f.Limit = n
	}
	return f, nil
}

// handleEnter handles POST /api/enter.
func (g *Gateway) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req EnterRequest
	if err := decodeBody(w, r, &req); err != nil {
		g.fail(w, "enter", err)
		return
	}
	call, err := parseEnterRequest(&req)
	if err != nil {
		g.fail(w, "enter", err)
		return
	}
	res, err := g.engine.Enter(r.Context(), call)
	g.metrics.Observe("enter", err)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func parseEnterRequest(req *EnterRequest) (engine.SignedCall, error) {
	var call engine.SignedCall
	var err error
	if call.Module, err = parseAddress("module", req.Module); err != nil {
		return call, err
	}
	if call.CallData, err = parseHex("call_data", req.CallData); err != nil {
		return call, err
	}
	if call.Signature, err = parseHex("signature", req.Signature); err != nil {
		return call, err
	}
	if call.Nonce, err = parseNonce(req.Nonce); err != nil {
		return call, err
	}
	return call, nil
}

// handleEnterDual handles POST /api/enter/dual.
func (g *Gateway) handleEnterDual(w http.ResponseWriter, r *http.Request) {
	var req EnterDualRequest
	if err := decodeBody(w, r, &req); err != nil {
		g.fail(w, "enter_dual", err)
		return
	}
	call, err := parseEnterDualRequest(&req)
	if err != nil {
		g.fail(w, "enter_dual", err)
		return
	}
	res, err := g.engine.EnterDual(r.Context(), call)
	g.metrics.Observe("enter_dual", err)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func parseEnterDualRequest(req *EnterDualRequest) (engine.DualSignedCall, error) {
	var call engine.DualSignedCall
	var err error
	if call.Module, err = parseAddress("module", req.Module); err != nil {
		return call, err
	}
	if call.CallData, err = parseHex("call_data", req.CallData); err != nil {
		return call, err
	}
	for i := range 2 {
		if call.Signatures[i], err = parseHex(fmt.Sprintf("signatures[%d]", i), req.Signatures[i]); err != nil {
			return call, err
		}
		if call.Nonces[i], err = parseNonce(req.Nonces[i]); err != nil {
			return call, err
		}
	}
	return call, nil
}

// handleTrigger handles POST /api/trigger.
// The call data names the delayed action and repeats its arguments.
func (g *Gateway) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := decodeBody(w, r, &req); err != nil {
		g.fail(w, "trigger", err)
		return
	}
	data, err := parseHex("call_data", req.CallData)
	if err != nil {
		g.fail(w, "trigger", err)
		return
	}
	act, err := action.Decode(data)
	if err == nil {
		err = g.engine.Trigger(r.Context(), act)
	}
	g.metrics.Observe("trigger", err)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Account: act.Target().Hex(), Method: act.Method()})
}

// handleExecuteProposal handles POST /api/proposals/execute.
func (g *Gateway) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	var req ExecuteProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		g.fail(w, "execute_proposal", err)
		return
	}
	client, err := parseAddress("client", req.Client)
	if err != nil {
		g.fail(w, "execute_proposal", err)
		return
	}
	proposer, err := parseAddress("proposer", req.Proposer)
	if err != nil {
		g.fail(w, "execute_proposal", err)
		return
	}
	data, err := parseHex("function_data", req.FunctionData)
	if err != nil {
		g.fail(w, "execute_proposal", err)
		return
	}

	inner, err := g.engine.ExecuteProposal(r.Context(), client, proposer, data)
	g.metrics.Observe("execute_proposal", err)
	if err != nil {
		g.sendEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Account: client.Hex(), Method: inner.Method()})
}

// fail counts a request rejected before it reached the engine and reports it.
func (g *Gateway) fail(w http.ResponseWriter, operation string, err error) {
	g.metrics.Observe(operation, err)
	g.sendEngineError(w, err)
}

// sendEngineError maps err to a status code and writes it with its kind.
func (g *Gateway) sendEngineError(w http.ResponseWriter, err error) {
	kind := errorKind(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, status, kind, "internal server error")
		return
	}
	g.sendJSONError(w, status, kind, err.Error())
}

// errorKind extends engine.ErrorKind with malformed request input.
func errorKind(err error) string {
	if errors.Is(err, errBadRequest) {
		return "bad_request"
	}
	return engine.ErrorKind(err)
}

// statusForKind returns the HTTP status for an engine error kind.
func statusForKind(kind string) int {
	switch kind {
	case "bad_request":
		return http.StatusBadRequest
	case "unauthorized_key", "module_not_authorized", "self_approval":
		return http.StatusForbidden
	case "not_found", "account_not_found", "backup_not_found", "no_pending_operation":
		return http.StatusNotFound
	case "replayed_nonce", "duplicate_pending_operation", "duplicate_backup", "already_initialized",
		"already_frozen", "not_frozen":
		return http.StatusConflict
	case "too_early", "backup_not_effective":
		return http.StatusTooEarly
	case "internal":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not a hex address", errBadRequest, field, s)
	}
	return common.HexToAddress(s), nil
}

func parseAddresses(field string, ss []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(ss))
	for i, s := range ss {
		addr, err := parseAddress(fmt.Sprintf("%s[%d]", field, i), s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseHex(field, s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	return b, nil
}

// parseNonce accepts a decimal or 0x-hex string. Empty means no nonce.
func parseNonce(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hexutil.Decode(s)
		if err != nil || len(b) > 32 {
			return nil, fmt.Errorf("%w: nonce %q is not a 256-bit hex value", errBadRequest, s)
		}
		return new(uint256.Int).SetBytes(b), nil
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce %q: %v", errBadRequest, s, err)
	}
	return n, nil
}

func parseSelector(s string) (account.Selector, error) {
	sel, err := account.ParseSelector(s)
	if err != nil {
		return sel, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return sel, nil
}

func parseAddressAndIndex(r *http.Request) (common.Address, int, error) {
	addr, err := parseAddress("address", r.PathValue("address"))
	if err != nil {
		return addr, 0, err
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		return addr, 0, fmt.Errorf("%w: index must be a non-negative integer", errBadRequest)
	}
	return addr, index, nil
}

func resultResponse(res *engine.Result) ResultResponse {
	signers := make([]string, 0, len(res.Signers))
	for _, s := range res.Signers {
		signers = append(signers, s.Hex())
	}
	return ResultResponse{Account: res.Account.Hex(), Method: res.Method, Signers: signers}
}

func keyResponse(index int, role account.Role, k account.KeySlot) KeyResponse {
	return KeyResponse{Index: index, Role: role.String(), Address: k.Address.Hex(), Status: k.Status.String()}
}

func backupResponse(index int, b account.Backup) BackupResponse {
	resp := BackupResponse{
		Index:       index,
		Address:     b.Address.Hex(),
		EffectiveAt: b.EffectiveAt.UTC().Format(time.RFC3339),
	}
	if !b.ExpiryAt.IsZero() {
		resp.ExpiryAt = b.ExpiryAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func timelockResponse(t account.Timelock) TimelockResponse {
	method, _ := action.MethodName(t.Selector)
	return TimelockResponse{
		Selector:   t.Selector.String(),
		Method:     method,
		DataHash:   t.DataHash.Hex(),
		EligibleAt: t.EligibleAt.UTC().Format(time.RFC3339),
	}
}

func proposalResponse(p account.Proposal) ProposalResponse {
	method, _ := action.MethodName(p.Selector)
	resp := ProposalResponse{
		Proposer:       p.Proposer.Hex(),
		Selector:       p.Selector.String(),
		Method:         method,
		DataHash:       p.DataHash.Hex(),
		ProposerBackup: p.ProposerBackup.Hex(),
		Approved:       p.Approved(),
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Approved() {
		resp.ApproverBackup = p.ApproverBackup.Hex()
	}
	return resp
}

// accountResponse renders a snapshot. Timelocks and proposals are sorted so
// responses are stable.
func accountResponse(a *account.Account, now time.Time) AccountResponse {
	resp := AccountResponse{
		Address:   a.Address.Hex(),
		Manager:   a.Manager.Hex(),
		Storage:   a.Storage.Hex(),
		Modules:   make([]string, 0, len(a.Modules)),
		Keys:      make([]KeyResponse, 0, a.KeyCount()),
		Frozen:    a.Frozen(),
		Backups:   make([]BackupResponse, 0, len(a.Backups)),
		Timelocks: make([]TimelockResponse, 0, len(a.Timelocks)),
		Proposals: make([]ProposalResponse, 0, len(a.Proposals)),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, m := range a.Modules {
		resp.Modules = append(resp.Modules, m.Hex())
	}
	for i := range a.KeyCount() {
		k, role, _ := a.KeyAt(i)
		resp.Keys = append(resp.Keys, keyResponse(i, role, k))
	}
	for i, b := range a.Backups {
		if b.Expired(now) {
			continue
		}
		resp.Backups = append(resp.Backups, backupResponse(i, b))
	}
	for _, t := range a.Timelocks {
		resp.Timelocks = append(resp.Timelocks, timelockResponse(t))
	}
	slices.SortFunc(resp.Timelocks, func(x, y TimelockResponse) int { return strings.Compare(x.Selector, y.Selector) })
	for _, p := range a.Proposals {
		resp.Proposals = append(resp.Proposals, proposalResponse(p))
	}
	slices.SortFunc(resp.Proposals, func(x, y ProposalResponse) int {
		if c := strings.Compare(x.Proposer, y.Proposer); c != 0 {
			return c
		}
		return strings.Compare(x.Selector, y.Selector)
	})
	return resp
}
