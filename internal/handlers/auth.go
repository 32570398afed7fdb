package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/middleware"
	"trafficportal/internal/models"
	"trafficportal/internal/routing"
	"trafficportal/internal/security"
	"trafficportal/internal/session"
)

// loginRequest.Email also accepts a city account username.
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	Redirect    string          `json:"redirect"`
	Session     sessionResponse `json:"session"`
}

type sessionResponse struct {
	models.Session
	DisplayRole string `json:"displayRole"`
}

func newSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{Session: s, DisplayRole: session.RoleDisplayName(&s)}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	account, err := h.portal.Sessions.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sess, err := h.portal.Sessions.CreateSession(ctx, account)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ttl := h.cfg.Security.JWTAccessTTL
	token, err := security.GenerateAccessToken(
		h.cfg.Security.JWTAccessSecret,
		sess.ID,
		sess.Username,
		string(sess.Role),
		sess.CityCode,
		ttl,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(ttl).UTC(),
		Redirect:    routing.RedirectPath(&sess),
		Session:     newSessionResponse(sess),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.portal.Sessions.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Session(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  newSessionResponse(sess),
		"redirect": routing.RedirectPath(&sess),
	})
}

// Redirect reports where the current slot holder should land, or the login
// page when the slot is empty.
func (h HandlerSet) Redirect(c *gin.Context) {
	var current *models.Session

	sess, err := h.portal.Sessions.GetSession(c.Request.Context())
	switch {
	case err == nil:
		current = &sess
	case !errors.Is(err, session.ErrNoSession):
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect": routing.RedirectPath(current)})
}
