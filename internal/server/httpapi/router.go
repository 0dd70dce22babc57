package httpapi

import "net/http"

// NewRouter wires every endpoint onto a standard mux. Method-qualified
// patterns keep the handlers free of method checks.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/token/refresh", h.RefreshToken)
	mux.HandleFunc("POST /api/wallet/verify", h.VerifyWallet)

	mux.HandleFunc("POST /api/contracts/deploy", h.DeployContract)
	mux.HandleFunc("POST /api/contracts/execute", h.ExecuteContract)
	mux.HandleFunc("POST /api/contracts/read", h.ReadContract)
	mux.HandleFunc("GET /api/contracts", h.ListContracts)
	mux.HandleFunc("GET /api/transactions", h.ListTransactions)

	mux.HandleFunc("POST /api/bets", h.CreateBet)
	mux.HandleFunc("GET /api/bets", h.ListBets)
	mux.HandleFunc("POST /api/bets/accept", h.AcceptBet)
	mux.HandleFunc("POST /api/bets/resolve", h.ResolveBet)
	mux.HandleFunc("POST /api/bets/void", h.VoidBet)

	return withRequestID(mux)
}
