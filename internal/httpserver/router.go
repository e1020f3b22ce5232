package httpserver

import (
	"context"
	"errors"
	"time"

	"buildmart/internal/domain"
	cartsvc "buildmart/internal/service/cart"
	customersvc "buildmart/internal/service/customer"
	"buildmart/internal/service/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, categoryKey string, limit, offset int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type CustomerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
}

type CartService interface {
	Add(ctx context.Context, f *cartsvc.Facade, in cartsvc.AddInput) error
	Update(ctx context.Context, f *cartsvc.Facade, key string, quantity int) error
	Remove(ctx context.Context, f *cartsvc.Facade, key string) error
}

type SessionService interface {
	Create(ctx context.Context) (*session.Session, error)
	Resume(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	Login(ctx context.Context, sessionID, email, password string) (*customersvc.Session, error)
	Logout(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// Limiter decides whether a client key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Deps are the services behind the routes.
type Deps struct {
	ProductSvc  ProductService
	CategorySvc CategoryService
	CustomerSvc CustomerService
	CartSvc     CartService
	Sessions    SessionService
	// SessionLimiter throttles session creation per client IP; nil disables it.
	SessionLimiter Limiter
}

func (d Deps) validate() error {
	switch {
	case d.ProductSvc == nil:
		return errors.New("product service required")
	case d.CategorySvc == nil:
		return errors.New("category service required")
	case d.CustomerSvc == nil:
		return errors.New("customer service required")
	case d.CartSvc == nil:
		return errors.New("cart service required")
	case d.Sessions == nil:
		return errors.New("session service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}

	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(requestLogger(logger), gin.Recovery(), corsMiddleware(opts.CORSOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger, heartbeat: opts.Heartbeat}

	router.GET("/categories", h.listCategories)
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)
	router.POST("/customers", h.signup)

	router.POST("/sessions", rateLimit(deps.SessionLimiter), h.createSession)

	s := router.Group("/session", sessionMiddleware(deps.Sessions))
	s.GET("", h.getSession)
	s.DELETE("", h.deleteSession)
	s.POST("/login", h.login)
	s.POST("/logout", h.logout)
	s.GET("/cart", h.getCart)
	s.DELETE("/cart", h.clearCart)
	s.POST("/cart/lines", h.addLine)
	s.PUT("/cart/lines/:key", h.updateLine)
	s.DELETE("/cart/lines/:key", h.removeLine)
	s.GET("/notifications", h.drainNotifications)
	s.GET("/events", h.events)

	return router, nil
}

type handlers struct {
	deps      Deps
	logger    *zap.Logger
	heartbeat time.Duration
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", sessionHeader},
		ExposeHeaders: []string{sessionHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
