package api

import "net/http"

// handleCarts handles GET /carts: carts updated today.
func (s *Server) handleCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := s.svc.ActiveCarts(r.Context())
	if err != nil {
		s.fail(w, r, "carts", err)
		return
	}
	writeJSON(w, http.StatusOK, carts)
}

// handleAccounts handles GET /accounts: accounts active today, topped up
// with yesterday's purchasers.
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ActiveAccounts(r.Context())
	if err != nil {
		s.fail(w, r, "accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}
