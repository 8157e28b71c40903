package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/middleware"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	profiles    *service.ProfileService
	log         zerolog.Logger
}

func NewAuthHandler(authService *service.AuthService, profiles *service.ProfileService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		profiles:    profiles,
		log:         logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Submit godoc
// @Summary Submit the sign-in form
// @Description Login, signup or forgot-password depending on mode. Forgot returns a notice instead of a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.AuthSubmitRequest true "Auth form"
// @Success 200 {object} model.AuthSubmitResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/submit [post]
func (h *AuthHandler) Submit(c *gin.Context) {
	var req model.AuthSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin godoc
// @Summary Sign in with Google
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} model.LoginResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req model.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.LoginWithGoogle(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TokenLogin godoc
// @Summary Exchange an identity provider ID token for a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.TokenLoginRequest true "Provider ID token"
// @Success 200 {object} model.LoginResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) TokenLogin(c *gin.Context) {
	var req model.TokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.LoginWithIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetPassword godoc
// @Summary Attach a password to the current account
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SetPasswordRequest true "New password"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/password [post]
func (h *AuthHandler) SetPassword(c *gin.Context) {
	var req model.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.SetPassword(c.Request.Context(), middleware.UID(c), req); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Password set successfully"})
}

// Me godoc
// @Summary Get the current profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ProfileView
// @Failure 404 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), middleware.UID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.ProfileView{Profile: *profile, NeedsPassword: !profile.HasSetPassword})
}

// Logout godoc
// @Summary Sign out and revoke the session token
// @Description Every open WebSocket of the user receives signed_out and is closed.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.UID(c), middleware.Token(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}
