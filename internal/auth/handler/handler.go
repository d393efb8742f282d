// Package handler exposes the authentication service over HTTP and owns the
// session cookies.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jwelary/internal/auth/models"
	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/httputil"
	"jwelary/pkg/platform/middleware/auth"
	"jwelary/pkg/platform/middleware/request"
	"jwelary/pkg/requestcontext"
)

// Service defines the interface for authentication operations.
type Service interface {
	Register(ctx context.Context, req models.Registration) (models.PublicUser, error)
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error)
	Logout(ctx context.Context, req models.LogoutRequest)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error)
	Me(ctx context.Context, userID id.UserID) (models.PublicUser, error)
}

// Handler handles the /auth endpoints.
type Handler struct {
	auth          Service
	logger        *slog.Logger
	secureCookies bool
}

// New creates an auth Handler. secureCookies sets the Secure flag on every
// session cookie and is on in production.
func New(auth Service, logger *slog.Logger, secureCookies bool) *Handler {
	return &Handler{
		auth:          auth,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// Register mounts the auth routes. requireAuth guards /auth/me.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Post("/refresh", h.HandleRefresh)
		r.With(requireAuth).Get("/me", h.HandleMe)
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.auth.Register(ctx, req.Registration())
	if err != nil {
		// Duplicate emails are reported as a plain bad request.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			httputil.WriteErrorStatus(w, http.StatusBadRequest, dErrors.MessageOf(err))
			return
		}
		h.writeError(ctx, w, err, "register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.UserResponse{
		Message: "User created successfully",
		User:    user,
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.auth.Login(ctx, req.Credentials())
	if err != nil {
		h.writeError(ctx, w, err, "login")
		return
	}

	h.setTokenCookie(w, AccessCookieName, result.Access.Value, result.Access.MaxAge)
	h.setTokenCookie(w, RefreshCookieName, result.Refresh.Value, result.Refresh.MaxAge)
	httputil.WriteJSON(w, http.StatusOK, models.UserResponse{
		Message: "Login successful",
		User:    result.User,
	})
}

// HandleLogout always succeeds and always clears both cookies.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), models.LogoutRequest{
		AccessToken:  auth.TokenFromRequest(r),
		RefreshToken: cookieValue(r, RefreshCookieName),
	})

	h.clearCookie(w, AccessCookieName)
	h.clearCookie(w, RefreshCookieName)
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// HandleRefresh sets a new access cookie. The refresh cookie is replaced only
// when the service rotated it.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.auth.Refresh(ctx, cookieValue(r, RefreshCookieName))
	if err != nil {
		h.writeError(ctx, w, err, "refresh")
		return
	}

	h.setTokenCookie(w, AccessCookieName, result.Access.Value, result.Access.MaxAge)
	if result.Refresh != nil {
		h.setTokenCookie(w, RefreshCookieName, result.Refresh.Value, result.Refresh.MaxAge)
	}
	httputil.WriteJSON(w, http.StatusOK, models.UserResponse{
		Message: "Token refreshed successfully",
		User:    result.User,
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.auth.Me(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(ctx, w, err, "me")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "auth request failed",
			"op", op,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
