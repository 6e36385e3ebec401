package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/httputil"
	"simtrack/pkg/requestcontext"
)

// Handler serves the login endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an auth handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the auth endpoints on the router. These stay outside the
// authenticated group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate implements the httputil Validator interface.
func (r LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

// LoginResponse carries the signed token and the authenticated identity.
type LoginResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    LoginUser `json:"user"`
}

// LoginUser echoes who logged in.
type LoginUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleLogin handles POST /auth/login requests.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", requestID,
			"username", req.Username)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "admin login",
		"request_id", requestID,
		"username", req.Username,
		"device", DeviceName(r.UserAgent()))
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		User:    LoginUser{Username: req.Username, Role: RoleAdmin},
	})
}

// HandleLogout handles POST /auth/logout requests. Tokens are stateless, so
// logout only exists for client symmetry.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
