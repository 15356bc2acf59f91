package server

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"vaultledger/internal/ledger"
	"vaultledger/internal/venue"
)

type initVaultRequest struct {
	Authority string `json:"authority"`
}

type initUserRequest struct {
	Owner string `json:"owner"`
}

type initCustodyRequest struct {
	Authority      string `json:"authority"`
	WrappedAccount string `json:"wrapped_account"`
	QuoteAccount   string `json:"quote_account"`
}

type depositRequest struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

type withdrawRequest struct {
	Owner     string `json:"owner"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

type userOpRequest struct {
	User   string `json:"user"`
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
	MinOut uint64 `json:"min_out"`
}

type adminOpRequest struct {
	Authority  string `json:"authority"`
	TargetUser string `json:"target_user"`
	Amount     uint64 `json:"amount"`
	MinOut     uint64 `json:"min_out"`
}

type venueSwapRequest struct {
	Caller        string `json:"caller"`
	AmountIn      uint64 `json:"amount_in"`
	MinAmountOut  uint64 `json:"min_amount_out"`
	PriceLimit    string `json:"price_limit,omitempty"`
	AmountIsInput bool   `json:"amount_is_input"`
	Direction     string `json:"direction"` // "wrapped_to_quote" | "quote_to_wrapped"
}

func (s *Server) handleInitVault(w http.ResponseWriter, r *http.Request) {
	var req initVaultRequest
	if !decode(w, r, &req) {
		return
	}
	authority, ok := parseAddr(w, "authority", req.Authority)
	if !ok {
		return
	}
	s.finishWrite(w, r, ledger.ZeroAddress, s.engine.InitializeVault(authority))
}

func (s *Server) handleInitUser(w http.ResponseWriter, r *http.Request) {
	var req initUserRequest
	if !decode(w, r, &req) {
		return
	}
	owner, ok := parseAddr(w, "owner", req.Owner)
	if !ok {
		return
	}
	s.finishWrite(w, r, owner, s.engine.InitializeUserLedger(owner))
}

func (s *Server) handleInitCustody(w http.ResponseWriter, r *http.Request) {
	var req initCustodyRequest
	if !decode(w, r, &req) {
		return
	}
	authority, ok := parseAddr(w, "authority", req.Authority)
	if !ok {
		return
	}
	wrapped, ok := parseAddr(w, "wrapped_account", req.WrappedAccount)
	if !ok {
		return
	}
	quote, ok := parseAddr(w, "quote_account", req.QuoteAccount)
	if !ok {
		return
	}
	s.finishWrite(w, r, ledger.ZeroAddress, s.engine.InitializeTokenCustody(authority, wrapped, quote))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := parseAddr(w, "user", req.User)
	if !ok {
		return
	}
	s.finishWrite(w, r, user, s.engine.Deposit(user, req.Amount))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !decode(w, r, &req) {
		return
	}
	owner, ok := parseAddr(w, "owner", req.Owner)
	if !ok {
		return
	}
	recipient, ok := parseAddr(w, "recipient", req.Recipient)
	if !ok {
		return
	}
	s.finishWrite(w, r, owner, s.engine.Withdraw(owner, req.Amount, recipient))
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request) {
	s.userOp(w, r, func(user, owner ledger.Address, amount, _ uint64) error {
		return s.engine.Wrap(user, owner, amount)
	})
}

func (s *Server) handleUnwrap(w http.ResponseWriter, r *http.Request) {
	s.userOp(w, r, func(user, owner ledger.Address, amount, _ uint64) error {
		return s.engine.Unwrap(user, owner, amount)
	})
}

func (s *Server) handleSwapBaseToQuote(w http.ResponseWriter, r *http.Request) {
	s.userOp(w, r, func(user, owner ledger.Address, amount, minOut uint64) error {
		return s.engine.SwapBaseToQuote(user, owner, amount, minOut)
	})
}

func (s *Server) handleSwapQuoteToBase(w http.ResponseWriter, r *http.Request) {
	s.userOp(w, r, func(user, owner ledger.Address, amount, minOut uint64) error {
		return s.engine.SwapQuoteToBase(user, owner, amount, minOut)
	})
}

func (s *Server) handleWithdrawQuote(w http.ResponseWriter, r *http.Request) {
	s.userOp(w, r, func(user, owner ledger.Address, amount, _ uint64) error {
		return s.engine.WithdrawQuoteAsset(user, owner, amount)
	})
}

func (s *Server) handleAdminWrap(w http.ResponseWriter, r *http.Request) {
	s.adminOp(w, r, func(authority, target ledger.Address, amount, _ uint64) error {
		return s.engine.AdminWrap(authority, target, amount)
	})
}

func (s *Server) handleAdminSwapBaseToQuote(w http.ResponseWriter, r *http.Request) {
	s.adminOp(w, r, func(authority, target ledger.Address, amount, minOut uint64) error {
		return s.engine.AdminSwapBaseToQuote(authority, target, amount, minOut)
	})
}

func (s *Server) handleAdminSwapQuoteToBase(w http.ResponseWriter, r *http.Request) {
	s.adminOp(w, r, func(authority, target ledger.Address, amount, minOut uint64) error {
		return s.engine.AdminSwapQuoteToBase(authority, target, amount, minOut)
	})
}

func (s *Server) handleAdminWithdrawQuote(w http.ResponseWriter, r *http.Request) {
	s.adminOp(w, r, func(authority, target ledger.Address, amount, _ uint64) error {
		return s.engine.AdminWithdrawQuoteAsset(authority, target, amount)
	})
}

func (s *Server) handleVenueSwap(w http.ResponseWriter, r *http.Request) {
	var req venueSwapRequest
	if !decode(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}

	var direction venue.Direction
	switch req.Direction {
	case "wrapped_to_quote":
		direction = venue.WrappedToQuote
	case "quote_to_wrapped":
		direction = venue.QuoteToWrapped
	default:
		writeError(w, http.StatusBadRequest, "direction must be wrapped_to_quote or quote_to_wrapped")
		return
	}

	params := venue.SwapParams{
		AmountIn:      req.AmountIn,
		MinAmountOut:  req.MinAmountOut,
		AmountIsInput: req.AmountIsInput,
		Direction:     direction,
	}
	if req.PriceLimit != "" {
		limit, ok := new(big.Int).SetString(req.PriceLimit, 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid price_limit")
			return
		}
		params.PriceLimit = limit
	}

	s.finishWrite(w, r, caller, s.engine.VenueSwap(r.Context(), caller, params))
}

func (s *Server) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := parseAddr(w, "id", r.PathValue("id"))
	if !ok {
		return
	}
	resp, err := s.queries.UserBalance(r.Context(), user)
	s.finishRead(w, resp, err)
}

func (s *Server) handleTokenBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := parseAddr(w, "id", r.PathValue("id"))
	if !ok {
		return
	}
	resp, err := s.queries.TokenBalances(r.Context(), user)
	s.finishRead(w, resp, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := parseAddr(w, "id", r.PathValue("id"))
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	resp, err := s.queries.History(r.Context(), user, limit)
	s.finishRead(w, resp, err)
}

func (s *Server) handleVaultStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.VaultStats(r.Context())
	s.finishRead(w, resp, err)
}

func (s *Server) handleSwapStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.queries.SwapStats(r.Context())
	s.finishRead(w, resp, err)
}

// userOp handles the common {user, owner, amount, min_out} body shape.
func (s *Server) userOp(w http.ResponseWriter, r *http.Request, apply func(user, owner ledger.Address, amount, minOut uint64) error) {
	var req userOpRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := parseAddr(w, "user", req.User)
	if !ok {
		return
	}
	owner, ok := parseAddr(w, "owner", req.Owner)
	if !ok {
		return
	}
	s.finishWrite(w, r, user, apply(user, owner, req.Amount, req.MinOut))
}

// adminOp handles the common {authority, target_user, amount, min_out} shape.
func (s *Server) adminOp(w http.ResponseWriter, r *http.Request, apply func(authority, target ledger.Address, amount, minOut uint64) error) {
	var req adminOpRequest
	if !decode(w, r, &req) {
		return
	}
	authority, ok := parseAddr(w, "authority", req.Authority)
	if !ok {
		return
	}
	target, ok := parseAddr(w, "target_user", req.TargetUser)
	if !ok {
		return
	}
	s.finishWrite(w, r, target, apply(authority, target, req.Amount, req.MinOut))
}

func (s *Server) finishWrite(w http.ResponseWriter, r *http.Request, user ledger.Address, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.queries.InvalidateUser(r.Context(), user)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) finishRead(w http.ResponseWriter, resp interface{}, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseAddr(w http.ResponseWriter, field, raw string) (ledger.Address, bool) {
	addr, err := ledger.AddressFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+field)
		return ledger.ZeroAddress, false
	}
	return addr, true
}

// statusFor maps ledger sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientWrappedBalance),
		errors.Is(err, ledger.ErrInsufficientQuoteBalance),
		errors.Is(err, ledger.ErrInsufficientCustodyFunds),
		errors.Is(err, ledger.ErrSlippageExceeded),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrExternalCallFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
