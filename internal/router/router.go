package router

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/ordercore/internal/config"
	"github.com/kiwari-pos/ordercore/internal/handler"
	mw "github.com/kiwari-pos/ordercore/internal/middleware"
	"github.com/kiwari-pos/ordercore/internal/ws"
)

// Services bundles what the HTTP surface calls into.
type Services struct {
	Orders  handler.OrderServicer
	Catalog handler.CatalogServicer
	Kitchen handler.KitchenServicer
	Hub     *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// loc is the business time zone used to read date filters.
func New(cfg *config.Config, svc Services, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(svc.Hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		productHandler := handler.NewProductHandler(svc.Catalog)
		r.Route("/products", productHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(svc.Orders, loc)
		r.Route("/orders", orderHandler.RegisterRoutes)

		kitchenHandler := handler.NewKitchenHandler(svc.Kitchen)
		r.Route("/kitchen", kitchenHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
