package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"buildmart/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.deps.CategorySvc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "results": categories})
}

func (h *handlers) listProducts(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	products, err := h.deps.ProductSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("category")), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{
		"limit":   limit,
		"offset":  offset,
		"count":   len(products),
		"results": products,
	})
}

func (h *handlers) getProduct(c *gin.Context) {
	product, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
