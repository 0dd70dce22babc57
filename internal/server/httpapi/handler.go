// Package httpapi is the REST adapter in front of the services layer. It
// parses requests, maps the error taxonomy onto HTTP status codes, and never
// contains business logic of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/dkurguzov/betkeeper/internal/chain"
	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/server/auth"
	"github.com/dkurguzov/betkeeper/internal/server/models"
	"github.com/dkurguzov/betkeeper/internal/server/services"
)

// UserAPI, ContractAPI, and BetAPI are the service surfaces the transport
// needs; the concrete services satisfy them.
type UserAPI interface {
	Register(ctx context.Context, username string, password []byte) (*models.User, error)
	Login(ctx context.Context, username string, password []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyWallet(ctx context.Context, username string, password []byte) (string, error)
}

type ContractAPI interface {
	Deploy(ctx context.Context, username string, password []byte, kind string, ctorArgs []chain.Arg, value *big.Int) (*services.DeployOutcome, error)
	Execute(ctx context.Context, username string, password []byte, contractAddress, method string, args []chain.Arg, value *big.Int) (*chain.Result, error)
	Read(ctx context.Context, contractAddress, method string, args []chain.Arg) ([]any, error)
	ListContracts(ctx context.Context, ownerID string) ([]*models.Contract, error)
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
}

type BetAPI interface {
	Create(ctx context.Context, username string, password []byte, description string, amount *big.Int) (*models.Bet, error)
	Accept(ctx context.Context, username string, password []byte, contractAddress string) (*chain.Result, error)
	Resolve(ctx context.Context, username string, password []byte, contractAddress, winner string) (*chain.Result, error)
	Void(ctx context.Context, username string, password []byte, contractAddress string) (*chain.Result, error)
	List(ctx context.Context, userID string) ([]*models.Bet, error)
}

type Handler struct {
	users     UserAPI
	contracts ContractAPI
	bets      BetAPI
	jwtSecret []byte
	log       logging.Logger
}

func NewHandler(users UserAPI, contracts ContractAPI, bets BetAPI, jwtSecret []byte, log logging.Logger) *Handler {
	return &Handler{
		users:     users,
		contracts: contracts,
		bets:      bets,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type deployRequest struct {
	credentialsRequest
	ContractType string      `json:"contract_type"`
	Args         []chain.Arg `json:"args"`
	Value        string      `json:"value"`
}

type executeRequest struct {
	credentialsRequest
	ContractAddress string      `json:"contract_address"`
	Method          string      `json:"method"`
	Args            []chain.Arg `json:"args"`
	Value           string      `json:"value"`
}

type readRequest struct {
	ContractAddress string      `json:"contract_address"`
	Method          string      `json:"method"`
	Args            []chain.Arg `json:"args"`
}

type betCreateRequest struct {
	credentialsRequest
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type betActionRequest struct {
	credentialsRequest
	ContractAddress string `json:"contract_address"`
	Winner          string `json:"winner,omitempty"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type txResponse struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber int64  `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	user, err := h.users.Register(r.Context(), req.Username, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"id":             user.ID,
		"username":       user.UserName,
		"wallet_address": user.WalletAddress,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	pair, err := h.users.Login(r.Context(), req.Username, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) VerifyWallet(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	address, err := h.users.VerifyWallet(r.Context(), req.Username, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"wallet_address": address})
}

func (h *Handler) DeployContract(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	value, ok := parseValue(req.Value)
	if !ok {
		h.badRequest(w, "invalid value")
		return
	}

	out, err := h.contracts.Deploy(r.Context(), req.Username, password, req.ContractType, req.Args, value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"contract_address": out.ContractAddress,
		"tx_hash":          out.TxHash,
	})
}

func (h *Handler) ExecuteContract(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	value, ok := parseValue(req.Value)
	if !ok {
		h.badRequest(w, "invalid value")
		return
	}

	res, err := h.contracts.Execute(r.Context(), req.Username, password, req.ContractAddress, req.Method, req.Args, value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, txResponse{TxHash: res.TxHash, BlockNumber: res.BlockNumber, GasUsed: res.GasUsed})
}

func (h *Handler) ReadContract(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.contracts.Read(r.Context(), req.ContractAddress, req.Method, req.Args)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"outputs": normalizeOutputs(out)})
}

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	list, err := h.contracts.ListContracts(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	list, err := h.contracts.ListTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateBet(w http.ResponseWriter, r *http.Request) {
	var req betCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		h.badRequest(w, "invalid amount")
		return
	}

	bet, err := h.bets.Create(r.Context(), req.Username, password, req.Description, amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bet)
}

func (h *Handler) AcceptBet(w http.ResponseWriter, r *http.Request) {
	h.betAction(w, r, func(req *betActionRequest, password []byte) (any, error) {
		return h.bets.Accept(r.Context(), req.Username, password, req.ContractAddress)
	})
}

func (h *Handler) ResolveBet(w http.ResponseWriter, r *http.Request) {
	h.betAction(w, r, func(req *betActionRequest, password []byte) (any, error) {
		return h.bets.Resolve(r.Context(), req.Username, password, req.ContractAddress, req.Winner)
	})
}

func (h *Handler) VoidBet(w http.ResponseWriter, r *http.Request) {
	h.betAction(w, r, func(req *betActionRequest, password []byte) (any, error) {
		return h.bets.Void(r.Context(), req.Username, password, req.ContractAddress)
	})
}

func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	list, err := h.bets.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) betAction(w http.ResponseWriter, r *http.Request, run func(req *betActionRequest, password []byte) (any, error)) {
	var req betActionRequest
	if !h.decode(w, r, &req) {
		return
	}
	password := []byte(req.Password)
	defer common.WipeByteArray(password)

	out, err := run(&req, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// --- plumbing ---

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		return "", false
	}

	userID, err := auth.GetUserIDFromToken(token, h.jwtSecret)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps the service error taxonomy onto HTTP status codes. The
// response carries only the category, never the underlying cause.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, common.ErrContractNotFound):
		status, msg = http.StatusNotFound, "contract not found"
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrInvalidCredential):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = http.StatusUnauthorized, "invalid token"
	case errors.Is(err, common.ErrUnsupportedContractType):
		status, msg = http.StatusBadRequest, "unsupported contract type"
	case errors.Is(err, common.ErrCorruptWallet):
		status, msg = http.StatusBadRequest, "corrupt wallet"
	case errors.Is(err, common.ErrTransactionFailed):
		status, msg = http.StatusBadGateway, "transaction failed"
	}

	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func parseValue(s string) (*big.Int, bool) {
	if s == "" {
		return nil, true
	}
	v, ok := new(big.Int).SetString(s, 10)
	return v, ok
}

// normalizeOutputs renders *big.Int outputs as decimal strings so callers do
// not lose precision to JSON numbers.
func normalizeOutputs(outputs []any) []any {
	out := make([]any, len(outputs))
	for i, v := range outputs {
		if b, ok := v.(*big.Int); ok {
			out[i] = b.String()
			continue
		}
		out[i] = v
	}
	return out
}
