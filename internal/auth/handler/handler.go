package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"consentd/internal/auth/service"
	"consentd/internal/platform/middleware"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/requestcontext"
)

// Service defines the auth operations the handler needs.
type Service interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the login endpoint on the unauthenticated router.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts endpoints that require an operator token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
}

// LoginRequest is the HTTP request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

// LoginResponse is the HTTP response for POST /auth/login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        OperatorBrief `json:"user"`
}

// OperatorBrief is the public view of an operator account.
type OperatorBrief struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		User: OperatorBrief{
			Username: result.Operator.Username,
			Role:     result.Operator.Role,
		},
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetOperator(r.Context())
	if username == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperatorBrief{
		Username: username,
		Role:     middleware.GetOperatorRole(r.Context()),
	})
}
