// Package api exposes the claim and campaign operations over HTTP. Every
// response is a structured JSON result; claim verification failures surface
// exactly two user-visible messages so validation internals never leak.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/getlisted/claim-engine/internal/pkg/logger"
	"github.com/getlisted/claim-engine/internal/service/claim"
	"github.com/getlisted/claim-engine/internal/service/nurture"
)

// User-visible claim outcomes. Token failures all collapse into msgLinkInvalid;
// a lost finalize race gets its own message because it is a legitimate state,
// not a bad link.
const (
	msgLinkInvalid    = "This verification link is invalid or has expired."
	msgAlreadyClaimed = "This listing has already been claimed. Contact support if you believe this is an error."
)

// ClaimService is the slice of the claim service the handlers use.
type ClaimService interface {
	RequestClaim(ctx context.Context, listingID, message string) error
	VerifyClaim(ctx context.Context, token, claimantID string) error
	OptOut(ctx context.Context, token string) error
}

// TickRunner runs one campaign scheduler tick.
type TickRunner interface {
	RunTick(ctx context.Context) nurture.TickSummary
}

// Enroller creates a campaign record for a qualifying listing.
type Enroller interface {
	EnrollListing(ctx context.Context, listingID string) error
}

// Handler wires the engine's HTTP surface.
type Handler struct {
	claims   ClaimService
	ticks    TickRunner
	enroller Enroller
}

// NewHandler creates the HTTP handler. enroller may be nil when enrollment is
// driven elsewhere.
func NewHandler(claims ClaimService, ticks TickRunner, enroller Enroller) *Handler {
	return &Handler{claims: claims, ticks: ticks, enroller: enroller}
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/api/claims/request", h.HandleRequestClaim)
	r.Get("/claim/verify/{token}", h.HandleVerifyClaim)
	r.Get("/optout/{token}", h.HandleOptOut)
	r.Post("/api/campaigns/tick", h.HandleTick)
	r.Post("/api/campaigns/enroll", h.HandleEnroll)
	r.Get("/health", h.HandleHealth)
	return r
}

type result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type requestClaimBody struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"message"`
}

// HandleRequestClaim starts a claim: it emails a verification link to the
// listing's contact address. It never reveals whether that address exists or
// received anything.
func (h *Handler) HandleRequestClaim(w http.ResponseWriter, r *http.Request) {
	var body requestClaimBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ListingID == "" {
		writeJSON(w, http.StatusBadRequest, result{Status: "error", Message: "listing_id is required"})
		return
	}

	err := h.claims.RequestClaim(r.Context(), body.ListingID, body.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{
			Status:  "success",
			Message: "Check the listing's contact inbox for a verification link.",
		})
	case errors.Is(err, claim.ErrNotFound):
		writeJSON(w, http.StatusNotFound, result{Status: "error", Message: "Listing not found."})
	case errors.Is(err, claim.ErrNotClaimable):
		writeJSON(w, http.StatusConflict, result{Status: "error", Message: "This listing is not open to claims."})
	default:
		logger.Error("request claim", "listing_id", body.ListingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Status: "error", Message: "Something went wrong. Please try again."})
	}
}

// HandleVerifyClaim finalizes a claim from an emailed token. Success implies
// ownership transferred.
func (h *Handler) HandleVerifyClaim(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	claimant := r.URL.Query().Get("account")
	if claimant == "" {
		claimant = uuid.New().String()
	}

	err := h.claims.VerifyClaim(r.Context(), tok, claimant)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Status: "success", Message: "Ownership verified. The listing is yours."})
	case errors.Is(err, claim.ErrAlreadyClaimed):
		writeJSON(w, http.StatusConflict, result{Status: "error", Message: msgAlreadyClaimed})
	case errors.Is(err, claim.ErrTokenInvalid), errors.Is(err, claim.ErrNotFound):
		// A token for a deleted listing reads the same as a bad token.
		writeJSON(w, http.StatusBadRequest, result{Status: "error", Message: msgLinkInvalid})
	default:
		logger.Error("verify claim", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Status: "error", Message: "Something went wrong. Please try again."})
	}
}

// HandleOptOut processes an opt-out link from a campaign email. Idempotent.
func (h *Handler) HandleOptOut(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	err := h.claims.OptOut(r.Context(), tok)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Status: "success", Message: "You will no longer receive these emails."})
	case errors.Is(err, claim.ErrTokenInvalid):
		writeJSON(w, http.StatusBadRequest, result{Status: "error", Message: msgLinkInvalid})
	default:
		logger.Error("opt out", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Status: "error", Message: "Something went wrong. Please try again."})
	}
}

// HandleTick runs one scheduler tick, for an external recurring trigger.
func (h *Handler) HandleTick(w http.ResponseWriter, r *http.Request) {
	summary := h.ticks.RunTick(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

type enrollBody struct {
	ListingID string `json:"listing_id"`
}

// HandleEnroll enrolls a qualifying listing into the nurture sequence. The
// surrounding application calls this when a free, unclaimed listing goes live.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	if h.enroller == nil {
		writeJSON(w, http.StatusNotFound, result{Status: "error", Message: "enrollment not enabled"})
		return
	}
	var body enrollBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ListingID == "" {
		writeJSON(w, http.StatusBadRequest, result{Status: "error", Message: "listing_id is required"})
		return
	}
	err := h.enroller.EnrollListing(r.Context(), body.ListingID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Status: "success"})
	case errors.Is(err, claim.ErrNotFound):
		writeJSON(w, http.StatusNotFound, result{Status: "error", Message: "Listing not found."})
	case errors.Is(err, nurture.ErrNotEligible):
		writeJSON(w, http.StatusConflict, result{Status: "error", Message: "Listing does not qualify for outreach."})
	default:
		logger.Error("enroll listing", "listing_id", body.ListingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Status: "error", Message: "Something went wrong."})
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
