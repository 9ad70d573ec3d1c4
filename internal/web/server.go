// Package web serves the tenant-facing token-gated endpoints: lease
// signature capture and the payment landing page. Users always see one of
// three distinct failures — invalid link, expired link, action already
// completed — never a generic error.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/payment"
	"github.com/maison-solution/rental-scheduler-service/internal/service"
)

// User-facing messages for token-gated access failures.
const (
	msgLinkInvalid = "Ce lien n'est pas valide."
	msgLinkExpired = "Ce lien a expiré."
	msgActionDone  = "Cette action a déjà été effectuée."
	msgInternal    = "Une erreur est survenue, merci de réessayer plus tard."
)

// Server wires the HTTP routes over the contract and rent services.
type Server struct {
	contracts *service.ContractService
	rents     *service.RentService
	now       func() time.Time
}

func NewServer(contracts *service.ContractService, rents *service.RentService) *Server {
	return &Server{contracts: contracts, rents: rents, now: time.Now}
}

// Router builds the chi router with health and metrics endpoints alongside
// the token-gated routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/signer", s.handleSignatureLanding)
	r.Post("/signer", s.handleSignatureCapture)
	r.Get("/payer", s.handlePaymentLanding)

	return r
}

type response struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeAccessError maps the typed service errors onto the three distinct
// user-facing messages.
func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrTokenMismatch):
		writeJSON(w, http.StatusNotFound, response{Message: msgLinkInvalid})
	case errors.Is(err, service.ErrTokenExpired):
		writeJSON(w, http.StatusGone, response{Message: msgLinkExpired})
	case errors.Is(err, service.ErrWrongState):
		writeJSON(w, http.StatusConflict, response{Message: msgActionDone})
	default:
		log.Error().Err(err).Msg("Token access check failed")
		writeJSON(w, http.StatusInternalServerError, response{Message: msgInternal})
	}
}

func (s *Server) handleSignatureLanding(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	contract, err := s.contracts.ValidateAccess(r.Context(), tok, s.now().UTC())
	if err != nil {
		writeAccessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]string{
		"reference":  contract.ID.String(),
		"expires_at": contract.TokenExpiresAt.Format(time.RFC3339),
	}})
}

func (s *Server) handleSignatureCapture(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	contract, err := s.contracts.ValidateAccess(r.Context(), tok, s.now().UTC())
	if err != nil {
		writeAccessError(w, err)
		return
	}
	if err := s.contracts.CaptureSignature(r.Context(), contract); err != nil {
		writeAccessError(w, err)
		return
	}
	log.Info().Str("contract_id", contract.ID.String()).Msg("Signature captured")
	writeJSON(w, http.StatusOK, response{Message: "Signature enregistrée.", Data: map[string]string{
		"reference": contract.ID.String(),
	}})
}

func (s *Server) handlePaymentLanding(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	sess, err := s.rents.ValidateSessionAccess(r.Context(), tok, s.now().UTC())
	if err != nil {
		writeAccessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: map[string]string{
		"reference":  sess.ObligationID.String(),
		"amount":     payment.FormatEUR(sess.Amount),
		"expires_at": sess.TokenExpiresAt.Format(time.RFC3339),
	}})
}
