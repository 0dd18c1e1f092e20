package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"
	"classifieds-marketplace/internal/usecase"
)

// Server hosts the payment callback, renewal, entitlement and notification
// routes plus the operational endpoints.
type Server struct {
	callbacks     usecase.CallbackUseCase
	renewals      usecase.RenewalUseCase
	entitlements  usecase.EntitlementUseCase
	payments      usecase.PaymentUseCase
	notifications usecase.NotificationUseCase
	auth          *AuthManager
	log           *zerolog.Logger
}

func NewServer(
	callbacks usecase.CallbackUseCase,
	renewals usecase.RenewalUseCase,
	entitlements usecase.EntitlementUseCase,
	payments usecase.PaymentUseCase,
	notifications usecase.NotificationUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		callbacks:     callbacks,
		renewals:      renewals,
		entitlements:  entitlements,
		payments:      payments,
		notifications: notifications,
		auth:          auth,
		log:           logger,
	}
}

// Router builds the full handler chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/mpesa/callback", s.handleMpesaCallback)
		r.Get("/entitlements/{userID}", s.handleEntitlement)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSeller)
			r.Post("/payments/initiate", s.handleInitiate)
			r.Post("/subscriptions/renew", s.handleRenew)
			r.Get("/notifications", s.handleNotifications)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return Chain(r,
		TraceID(),
		Recover(s.log),
		RequestLog(s.log),
		CORS(),
		Timeout(30*time.Second),
	)
}

type ctxKey string

const claimsKey ctxKey = "seller_claims"

func contextWithClaims(ctx context.Context, claims *SellerClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// isOperatorRole gates the on-behalf-of surface to the same roles the
// entitlement resolver treats as staff.
func isOperatorRole(role string) bool {
	switch model.TeamRole(role) {
	case model.TeamRoleAdmin, model.TeamRoleSuperAdmin:
		return true
	}
	return false
}

func claimsFromContext(ctx context.Context) *SellerClaims {
	if c, ok := ctx.Value(claimsKey).(*SellerClaims); ok {
		return c
	}
	return &SellerClaims{}
}

func (s *Server) requireSeller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		ctx := logging.WithUserID(r.Context(), claims.Subject)
		ctx = contextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ===== M-Pesa callback =====

// mpesaEnvelope is Daraja's wire shape. Metadata values are heterogeneous,
// so they stay as any until the use case parses them.
type mpesaEnvelope struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (s *Server) handleMpesaCallback(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var env mpesaEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		// The provider retries on non-200; a body we cannot read still gets
		// the ack, it just never mutates anything.
		log.Warn().Err(err).Msg("unreadable callback envelope")
		metrics.IncCallback("bad_envelope")
		writeJSON(w, http.StatusOK, usecase.AcceptedAck())
		return
	}

	stk := env.Body.STKCallback
	cb := usecase.STKCallback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}
	if stk.CallbackMetadata != nil {
		for _, it := range stk.CallbackMetadata.Item {
			cb.Items = append(cb.Items, usecase.STKCallbackItem{Name: it.Name, Value: it.Value})
		}
	}

	ctx := logging.WithCheckoutID(r.Context(), cb.CheckoutRequestID)
	ack, res := s.callbacks.HandleCallback(ctx, cb)

	metrics.IncCallback(string(res.Outcome))
	if res.ActivatedKind != "" {
		metrics.IncActivation(res.ActivatedKind)
		metrics.AddPaymentRevenue("KES", res.Amount)
	}
	writeJSON(w, http.StatusOK, ack)
}

// ===== Renewal =====

// renewRequest carries an optional user_id so staff tokens can renew on a
// seller's behalf; seller tokens renew only for themselves.
type renewRequest struct {
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id"`
	PackageID      string `json:"package_id"`
}

type renewResponse struct {
	Message             string    `json:"message"`
	ReactivatedListings int       `json:"reactivated_listings"`
	ExpiresAt           time.Time `json:"expires_at"`
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	target := claims.Subject
	if req.UserID != "" && req.UserID != claims.Subject {
		if !isOperatorRole(claims.Role) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		target = req.UserID
	}

	res, err := s.renewals.Renew(r.Context(), target, req.SubscriptionID, req.PackageID)
	if err != nil {
		s.writeError(w, r, err, "renewal failed")
		return
	}

	metrics.IncRenewal()
	metrics.AddReactivatedListings(res.ReactivatedListings)
	writeJSON(w, http.StatusOK, renewResponse{
		Message:             "subscription renewed",
		ReactivatedListings: res.ReactivatedListings,
		ExpiresAt:           res.ExpiresAt,
	})
}

// ===== Entitlements =====

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := logging.WithUserID(r.Context(), userID)

	ent, err := s.entitlements.Resolve(ctx, userID)
	if err != nil {
		s.writeError(w, r, err, "entitlement resolution failed")
		return
	}
	if ent.AutoEnrolled {
		metrics.IncAutoEnrollment("created")
	}
	writeJSON(w, http.StatusOK, ent)
}

// ===== Payment initiation =====

type initiateRequest struct {
	Kind            string `json:"kind"` // subscription|addon
	SubscriptionID  string `json:"subscription_id"`
	AddonPurchaseID string `json:"addon_purchase_id"`
	PhoneNumber     string `json:"phone_number"`
}

type initiateResponse struct {
	TransactionID     string `json:"transaction_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	switch req.Kind {
	case "subscription":
		t, err := s.payments.InitiateSubscription(r.Context(), claims.Subject, req.SubscriptionID, req.PhoneNumber)
		if err != nil {
			s.writeError(w, r, err, "payment initiation failed")
			return
		}
		writeJSON(w, http.StatusAccepted, initiateResponse{
			TransactionID: t.ID, CheckoutRequestID: t.CheckoutRequestID, Amount: t.Amount, Status: string(t.Status),
		})
	case "addon":
		t, err := s.payments.InitiateAddon(r.Context(), claims.Subject, req.AddonPurchaseID, req.PhoneNumber)
		if err != nil {
			s.writeError(w, r, err, "payment initiation failed")
			return
		}
		writeJSON(w, http.StatusAccepted, initiateResponse{
			TransactionID: t.ID, CheckoutRequestID: t.CheckoutRequestID, Amount: t.Amount, Status: string(t.Status),
		})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown kind %q", req.Kind)})
	}
}

// ===== Notifications =====

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	items, err := s.notifications.ListRecent(r.Context(), claims.Subject, 0)
	if err != nil {
		s.writeError(w, r, err, "listing notifications failed")
		return
	}
	unread, err := s.notifications.CountUnread(r.Context(), claims.Subject)
	if err != nil {
		s.writeError(w, r, err, "counting notifications failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread_count":  unread,
	})
}

// ===== Helpers =====

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	l := logging.With(r.Context(), s.log)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		l.Error().Err(err).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
