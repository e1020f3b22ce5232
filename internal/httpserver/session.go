package httpserver

import (
	"errors"
	"net/http"
	"time"

	"buildmart/internal/domain"
	cartsvc "buildmart/internal/service/cart"
	customersvc "buildmart/internal/service/customer"
	"buildmart/internal/service/session"
	"github.com/gin-gonic/gin"
)

type sessionResponse struct {
	ID        string           `json:"id"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Customer  *domain.Customer `json:"customer,omitempty"`
	Cart      cartsvc.View     `json:"cart"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Customer    *domain.Customer `json:"customer"`
	AccessToken string           `json:"accessToken"`
	ExpiresIn   int              `json:"expiresIn"`
	Cart        cartsvc.View     `json:"cart"`
}

func (h *handlers) toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		ExpiresAt: s.ExpiresAt(h.deps.Sessions.TTL()).UTC(),
		Customer:  s.Customer(),
		Cart:      s.Cart.View(),
	}
}

func (h *handlers) createSession(c *gin.Context) {
	s, err := h.deps.Sessions.Create(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.Header(sessionHeader, s.ID)
	c.JSON(http.StatusCreated, h.toSessionResponse(s))
}

func (h *handlers) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.toSessionResponse(currentSession(c)))
}

func (h *handlers) deleteSession(c *gin.Context) {
	s := currentSession(c)
	if err := h.deps.Sessions.Delete(c.Request.Context(), s.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	s := currentSession(c)
	auth, err := h.deps.Sessions.Login(c.Request.Context(), s.ID, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, customersvc.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, session.ErrAlreadySignedIn):
			c.JSON(http.StatusConflict, gin.H{"error": "already signed in"})
		case errors.Is(err, session.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		}
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Customer:    auth.Customer,
		AccessToken: auth.AccessToken,
		ExpiresIn:   auth.ExpiresIn,
		Cart:        s.Cart.View(),
	})
}

func (h *handlers) logout(c *gin.Context) {
	s := currentSession(c)
	if err := h.deps.Sessions.Logout(c.Request.Context(), s.ID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotSignedIn):
			c.JSON(http.StatusConflict, gin.H{"error": "not signed in"})
		case errors.Is(err, session.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign out"})
		}
		return
	}
	c.JSON(http.StatusOK, h.toSessionResponse(s))
}
