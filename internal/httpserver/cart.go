package httpserver

import (
	"errors"
	"net/http"

	"buildmart/internal/domain"
	cartsvc "buildmart/internal/service/cart"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Cart.View())
}

func (h *handlers) addLine(c *gin.Context) {
	var in cartsvc.AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	s := currentSession(c)
	if err := h.deps.CartSvc.Add(c.Request.Context(), s.Cart, in); err != nil {
		h.writeCartError(c, "add", err)
		return
	}
	c.JSON(http.StatusCreated, s.Cart.View())
}

func (h *handlers) updateLine(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity required"})
		return
	}
	s := currentSession(c)
	if err := h.deps.CartSvc.Update(c.Request.Context(), s.Cart, c.Param("key"), *req.Quantity); err != nil {
		h.writeCartError(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, s.Cart.View())
}

func (h *handlers) removeLine(c *gin.Context) {
	s := currentSession(c)
	if err := h.deps.CartSvc.Remove(c.Request.Context(), s.Cart, c.Param("key")); err != nil {
		h.writeCartError(c, "remove", err)
		return
	}
	c.JSON(http.StatusOK, s.Cart.View())
}

func (h *handlers) clearCart(c *gin.Context) {
	s := currentSession(c)
	if err := s.Cart.ClearCart(c.Request.Context()); err != nil {
		h.writeCartError(c, "clear", err)
		return
	}
	c.JSON(http.StatusOK, s.Cart.View())
}

// writeCartError maps cart failures to a status. Store failures have
// already been reported to the visitor through the session inbox.
func (h *handlers) writeCartError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, cartsvc.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case cartsvc.IsValidation(err), errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		h.logger.Warn("cart request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "cart store unavailable"})
	}
}
