package httpserver

import (
	"errors"
	"net/http"

	"buildmart/internal/domain"
	customersvc "buildmart/internal/service/customer"
	"github.com/gin-gonic/gin"
)

func (h *handlers) signup(c *gin.Context) {
	var in customersvc.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	customer, err := h.deps.CustomerSvc.Signup(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "customer already exists"})
		case customersvc.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create customer"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}
