package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pandodao/paybridge/core"
	"github.com/shopspring/decimal"
)

func New(payments core.PaymentService, logger *slog.Logger) *Server {
	return &Server{
		payments: payments,
		logger:   logger.With("server", "api"),
	}
}

type Server struct {
	payments core.PaymentService
	logger   *slog.Logger
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/wallet", func(r chi.Router) {
		r.Post("/create", s.createWallet)
		r.Get("/balance/{address}", s.balance)
		r.Get("/bonus-eligible/{address}", s.bonusEligible)
	})

	r.Route("/payment", func(r chi.Router) {
		r.Post("/faucet", s.faucet)
		r.Post("/email-to-email", s.emailToEmail)
		r.Post("/wallet-to-wallet", s.walletToWallet)
	})

	return r
}

type paymentView struct {
	Success bool `json:"success"`
	*core.Payment
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"ownerId"`
	}

	if err := decode(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	wallet, err := s.payments.CreateWallet(r.Context(), req.OwnerID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*core.CreatedWallet
	}{true, wallet})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.payments.Balance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, struct {
		Success bool            `json:"success"`
		Balance decimal.Decimal `json:"balance"`
	}{true, balance})
}

func (s *Server) bonusEligible(w http.ResponseWriter, r *http.Request) {
	eligible, err := s.payments.BonusEligible(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, struct {
		Success  bool `json:"success"`
		Eligible bool `json:"eligible"`
	}{true, eligible})
}

func (s *Server) faucet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToWallet   string `json:"toWallet"`
		AmountEth  string `json:"amountEth"`
		FromWallet string `json:"fromWallet"`
	}

	if err := decode(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	payment, err := s.payments.Faucet(r.Context(), req.ToWallet, req.AmountEth, req.FromWallet)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, paymentView{true, payment})
}

func (s *Server) emailToEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromEmail string `json:"fromEmail"`
		ToEmail   string `json:"toEmail"`
		AmountEth string `json:"amountEth"`
		Memo      string `json:"memo"`
	}

	if err := decode(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	payment, err := s.payments.EmailToEmail(r.Context(), req.FromEmail, req.ToEmail, req.AmountEth, req.Memo)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, paymentView{true, payment})
}

func (s *Server) walletToWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromWallet string `json:"fromWallet"`
		ToWallet   string `json:"toWallet"`
		AmountEth  string `json:"amountEth"`
		Memo       string `json:"memo"`
	}

	if err := decode(r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	payment, err := s.payments.WalletToWallet(r.Context(), req.FromWallet, req.ToWallet, req.AmountEth, req.Memo)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, paymentView{true, payment})
}
