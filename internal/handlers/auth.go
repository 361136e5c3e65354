package handlers

import (
	"errors"
	"net/http"

	"github.com/equipdesk/backend/internal/config"
	"github.com/equipdesk/backend/internal/metrics"
	"github.com/equipdesk/backend/internal/middleware"
	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         config.AuthConfig
	metrics     *metrics.Metrics
}

func NewAuthHandler(authService *services.AuthService, cfg config.AuthConfig, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		metrics:     m,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func (h *AuthHandler) event(name string) {
	if h.metrics != nil {
		h.metrics.AuthEvent(name)
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, token, int(h.cfg.RefreshTTL.Seconds()), h.cfg.CookiePath, "", h.cfg.CookieSecure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, h.cfg.CookiePath, "", h.cfg.CookieSecure, true)
}

// writeTokens sends the access token and delivers the refresh token by
// cookie or, with cookie mode off, in the body.
func (h *AuthHandler) writeTokens(c *gin.Context, res *services.LoginResult) {
	body := tokenResponse{AccessToken: res.AccessToken}
	if h.cfg.CookieMode {
		h.setRefreshCookie(c, res.RefreshToken)
	} else {
		body.RefreshToken = res.RefreshToken
	}
	c.JSON(http.StatusOK, body)
}

// Register creates a user account
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest("email and password are required"))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.event(metrics.EventRegister)
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"user":    user,
	})
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest("email and password are required"))
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.event(metrics.EventLoginFailure)
		}
		respondError(c, err)
		return
	}

	h.event(metrics.EventLoginSuccess)
	h.writeTokens(c, res)
}

// Refresh rotates the refresh token taken from the cookie, or from the body
// when no cookie is sent.
// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(h.cfg.CookieName)
	if token == "" {
		var req refreshRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				response.Error(c, response.NewBadRequest("invalid request body"))
				return
			}
		}
		token = req.RefreshToken
	}

	res, err := h.authService.Refresh(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReuseDetected):
			h.event(metrics.EventReuseDetected)
			h.clearRefreshCookie(c)
		case errors.Is(err, services.ErrInvalidToken):
			h.event(metrics.EventRefreshFailure)
			h.clearRefreshCookie(c)
		}
		respondError(c, err)
		return
	}

	h.event(metrics.EventRefreshSuccess)
	h.writeTokens(c, res)
}

// Logout revokes every active session of the caller
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	h.event(metrics.EventLogout)
	h.clearRefreshCookie(c)
	response.NoContent(c)
}

// Me returns the current logged-in user and its active sessions
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	me, err := h.authService.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}
