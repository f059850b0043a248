// Package handler exposes the OTP-gated ingestion flows. Two mirrored
// variants exist: the customer self-service flow and the branch-officer
// assisted flow. Each runs issue, verify, consent against its own evidence
// channel, so a transaction issued in one flow cannot be consumed by the
// other.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentd/internal/consent"
	consenthandler "consentd/internal/consent/handler"
	consentservice "consentd/internal/consent/service"
	"consentd/internal/evidence"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/requestcontext"
)

// EvidenceService issues and verifies OTP transactions.
type EvidenceService interface {
	Issue(ctx context.Context, mobileNumber string, channel evidence.Channel, applicationNumber string) (*evidence.Transaction, string, error)
	Verify(ctx context.Context, transactionID, submittedCode string, expectedChannel evidence.Channel) (*evidence.Transaction, error)
}

// ConsentService creates consents from claimed evidence.
type ConsentService interface {
	GrantFromEvidence(ctx context.Context, in consentservice.GrantFromEvidenceInput) (*consent.Consent, error)
}

type Handler struct {
	evidence  EvidenceService
	consents  ConsentService
	logger    *slog.Logger
	simulated bool
}

// New constructs the ingest handler. In simulated delivery mode the issued
// code is echoed in the initiate response so demo flows work without an
// SMS gateway.
func New(ev EvidenceService, consents ConsentService, simulated bool, logger *slog.Logger) *Handler {
	return &Handler{evidence: ev, consents: consents, simulated: simulated, logger: logger}
}

// Register mounts the ingestion endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/ingest/customer", func(r chi.Router) {
		r.Post("/login-initiate", h.handleInitiate(evidence.ChannelCustomerLogin))
		r.Post("/verify-otp", h.handleVerifyOTP(evidence.ChannelCustomerLogin))
		r.Post("/consent", h.HandleCustomerConsent)
	})
	r.Route("/ingest/branch", func(r chi.Router) {
		r.Post("/initiate", h.handleInitiate(evidence.ChannelBranchConsent))
		r.Post("/verify-otp", h.handleVerifyOTP(evidence.ChannelBranchConsent))
		r.Post("/consent", h.HandleBranchConsent)
	})
}

func (h *Handler) handleInitiate(channel evidence.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		if channel == evidence.ChannelBranchConsent && req.BranchOfficerID == "" {
			httputil.WriteError(w, errBranchOfficerRequired)
			return
		}

		txn, code, err := h.evidence.Issue(ctx, req.MobileNumber, channel, req.ApplicationNumber)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		resp := &InitiateResponse{TransactionID: txn.TransactionID, Mode: deliveryModeLive}
		if h.simulated {
			resp.Mode = deliveryModeSimulated
			resp.OTP = code
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) handleVerifyOTP(channel evidence.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[VerifyOTPRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		txn, err := h.evidence.Verify(ctx, req.TransactionID, req.OTP, channel)
		if err != nil {
			h.logger.WarnContext(ctx, "otp verification failed",
				"request_id", requestID,
				"transaction_id", req.TransactionID,
				"channel", channel,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromVerified(txn))
	}
}

// HandleCustomerConsent handles POST /ingest/customer/consent.
func (h *Handler) HandleCustomerConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.consents.GrantFromEvidence(ctx, consentservice.GrantFromEvidenceInput{
		TransactionID:   req.TransactionID,
		ExpectedChannel: evidence.ChannelCustomerLogin,
		TenantID:        req.TenantID,
		ProductID:       req.ProductID,
		Purpose:         req.Purpose,
		Source:          "web_ingestion_customer",
		SourceChannel:   "web_app_customer",
		ActorType:       "customer",
		Actor:           "customer_ingestion",
		Meta:            req.Meta,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, consenthandler.FromConsent(c))
}

// HandleBranchConsent handles POST /ingest/branch/consent.
func (h *Handler) HandleBranchConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.BranchOfficerID == "" {
		httputil.WriteError(w, errBranchOfficerRequired)
		return
	}

	c, err := h.consents.GrantFromEvidence(ctx, consentservice.GrantFromEvidenceInput{
		TransactionID:   req.TransactionID,
		ExpectedChannel: evidence.ChannelBranchConsent,
		TenantID:        req.TenantID,
		ProductID:       req.ProductID,
		Purpose:         req.Purpose,
		Source:          "web_ingestion_branch",
		SourceChannel:   "web_app_branch_officer",
		ActorType:       "branch_officer",
		Actor:           req.BranchOfficerID,
		Meta:            req.Meta,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, consenthandler.FromConsent(c))
}
