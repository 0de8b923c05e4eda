package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bebranft/creator-market/internal/auth"
	"github.com/bebranft/creator-market/internal/blockchain"
	"github.com/bebranft/creator-market/internal/config"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/handlers"
	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/services"
	"github.com/bebranft/creator-market/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Content store and chain client
	contentStore := storage.NewIPFSStore(cfg.IPFS.APIURL)
	solanaClient := blockchain.NewSolanaClient(
		cfg.Solana.Network,
		cfg.Solana.ServerWalletPrivateKey,
	)
	minter := blockchain.NewSolanaMinter(solanaClient)

	// Core services
	resolver := identity.NewResolver(db)
	statsService := services.NewStatsService(db)
	pipeline := services.NewPublicationService(db, contentStore, minter, resolver, statsService, cfg.Solana.MinConfirmations)
	userService := services.NewUserService(db, contentStore, resolver, statsService)
	followService := services.NewFollowService(db, resolver)
	authService := services.NewAuthService(resolver)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, pipeline)
	publicationHandler := handlers.NewPublicationHandler(pipeline)
	followHandler := handlers.NewFollowHandler(followService)
	balanceHandler := handlers.NewBalanceHandler(solanaClient)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/wallet", authHandler.WalletLogin)

	// Public profile routes
	router.GET("/api/users/:address", userHandler.GetProfile)
	router.GET("/api/users/:address/is-following/:other", followHandler.IsFollowing)
	router.GET("/api/users/:address/balance", balanceHandler.GetBalance)
	router.GET("/api/users/:address/tokens/:contract/balance", balanceHandler.GetTokenBalance)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// User endpoints
		api.POST("/users/register", userHandler.Register)
		api.POST("/users/repair-stats", userHandler.RepairStats)
		api.PUT("/users/me", userHandler.UpdateProfile)
		api.POST("/users/me/stats", userHandler.UpdateStats)
		api.POST("/users/migrate", userHandler.Migrate)
		api.DELETE("/users/me", userHandler.Delete)

		// Publication endpoints
		api.POST("/posts/publish", publicationHandler.Publish)
		api.POST("/posts/retry-mint", publicationHandler.RetryMint)
		api.POST("/posts/reconcile-mint", publicationHandler.ReconcileMint)
		api.POST("/tokens/:contract/mint", publicationHandler.MintSupply)
		api.POST("/tokens/coin", publicationHandler.CreateCoin)
		api.POST("/tokens/coin/reconcile", publicationHandler.ReconcileCoin)

		// Follow graph endpoints
		api.POST("/follow/:address", followHandler.Follow)
		api.DELETE("/follow/:address", followHandler.Unfollow)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
