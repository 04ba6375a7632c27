package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatwave-backend/internal/config"
	"chatwave-backend/internal/database"
	"chatwave-backend/internal/handlers"
	"chatwave-backend/internal/llm"
	"chatwave-backend/internal/repository"
	"chatwave-backend/internal/router"
	"chatwave-backend/internal/scheduler"
	"chatwave-backend/internal/services"
	"chatwave-backend/internal/websocket"
	"chatwave-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Chatwave Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)
	jobRepo := repository.NewAssistantJobRepo(pool)

	// ──── Step 5: Initialize LLM Client ────
	llmClient, err := llm.NewFactory(cfg).CreateClient(context.Background(), cfg.AIProvider)
	if err != nil {
		log.Fatalf("✗ LLM client initialization failed: %v", err)
	}
	defer llmClient.Close()
	log.Printf("✓ LLM client initialized (provider: %s)", cfg.AIProvider)

	// ──── Initialize Services ────
	accountService := services.NewAccountService(userRepo)
	assistantService := services.NewAssistantService(llmClient, messageRepo, redisClients.PubSub, cfg.AIConcurrentReqs, cfg.AIHistoryTurns)

	// ──── Initialize Handlers ────
	accountHandler := handlers.NewAccountHandler(accountService)
	messageHandler := handlers.NewMessageHandler(messageRepo)
	assistantHandler := handlers.NewAssistantHandler(assistantService, messageRepo)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, redisClients.Queue, messageRepo, jobRepo, userRepo)
	log.Println("✓ WebSocket hub started")

	userHandler := handlers.NewUserHandler(userRepo, wsHub)

	// ──── Step 7: Start Assistant Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, assistantService, messageRepo, jobRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	retentionSweeper := scheduler.NewRetentionSweeper(messageRepo, cfg.MessageRetentionDays)
	if err := retentionSweeper.Start(); err != nil {
		log.Fatalf("✗ Retention sweeper failed to start: %v", err)
	}

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		accountHandler,
		userHandler,
		messageHandler,
		assistantHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.StaticDir,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		retentionSweeper.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Chatwave Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
