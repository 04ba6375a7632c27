package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatwave-backend/internal/handlers"
	"chatwave-backend/internal/middleware"
	"chatwave-backend/internal/websocket"
)

func New(
	accountHandler *handlers.AccountHandler,
	userHandler *handlers.UserHandler,
	messageHandler *handlers.MessageHandler,
	assistantHandler *handlers.AssistantHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	staticDir string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Registration/login limiter (20 req/min per IP)
	accountLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Account Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(accountLimiter.Middleware)
			r.Post("/register", accountHandler.Register)
			r.Post("/login", accountHandler.Login)
		})

		// ──── User Directory ────
		r.Get("/users", userHandler.List)

		// ──── Message History ────
		r.Get("/messages/{peerID}", messageHandler.History)

		// ──── Assistant ────
		r.Post("/assistant/ask", assistantHandler.Ask)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	// Single-page UI
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
