package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dom/blog/internal/api/middleware"
	"github.com/dom/blog/internal/api/response"
	"github.com/dom/blog/internal/config"
	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/service"
)

const defaultExtendHours = 24

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ExtendRequest struct {
	Hours int `json:"hours" validate:"omitempty,gt=0,lte=720"`
}

type LoginResponse struct {
	Success   bool            `json:"success"`
	User      domain.AuthUser `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type SessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *domain.AuthUser `json:"user,omitempty"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
}

type ExtendResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	response.JSON(w, r, http.StatusOK, LoginResponse{
		Success:   true,
		User:      result.User,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout always succeeds; a missing or stale cookie is simply cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.SessionToken(r)); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	status, err := h.authService.Session(r.Context(), middleware.SessionToken(r))
	if errors.Is(err, service.ErrNoSession) {
		response.JSON(w, r, http.StatusOK, SessionResponse{Authenticated: false})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, SessionResponse{
		Authenticated: true,
		User:          &status.User,
		ExpiresAt:     &status.ExpiresAt,
	})
}

func (h *AuthHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var req ExtendRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	hours := req.Hours
	if hours == 0 {
		hours = defaultExtendHours
	}

	token := middleware.GetSessionToken(r.Context())
	ok, err := h.authService.Extend(r.Context(), token, hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		response.Error(w, r, response.NewError(http.StatusUnauthorized, "Session expired or invalid"))
		return
	}

	status, err := h.authService.Session(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, token, status.ExpiresAt)
	response.JSON(w, r, http.StatusOK, ExtendResponse{Success: true, ExpiresAt: status.ExpiresAt})
}

// LogoutAll ends every session of the admin, including the caller's.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.LogoutEverywhere(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
