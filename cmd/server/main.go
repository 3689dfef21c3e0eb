package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/joabank/backend/docs"
	"github.com/joabank/backend/internal/config"
	"github.com/joabank/backend/internal/database"
	"github.com/joabank/backend/internal/handlers"
	mW "github.com/joabank/backend/internal/middleware"
	"github.com/joabank/backend/internal/services"
)

// @title Joa Bank Backend API
// @version 1.0
// @description Open banking simulation backend
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Joa Bank Backend API"
	docs.SwaggerInfo.Description = "Open banking simulation backend"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize infrastructure
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	audit := services.NewAuditLogger()
	ledger := services.NewLedgerService(db)
	authService := services.NewAuthService(db, redisClient)
	isoService := services.NewISO20022Service()
	engine := services.NewTransactionService(db, ledger, authService, audit, isoService)
	rateService := services.NewRateService(db, ledger)
	searchService := services.NewSearchService(db, authService)
	bankService := services.NewBankService(db, searchService)
	qrService := services.NewQRService(redisClient)

	settlementCfg := config.LoadSettlementConfig()
	settlement := services.NewSettlementService(db, engine, settlementCfg)

	transactionHandler := handlers.NewTransactionHandler(engine, searchService, ledger)
	productHandler := handlers.NewProductHandler(rateService)
	qrHandler := handlers.NewQRHandler(qrService, engine)

	// Start the settlement scheduler
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	settlement.Start(schedulerCtx)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Admin console (public auth endpoints)
		r.Post("/admin/register", authService.Register)
		r.Post("/admin/login", authService.Login)
		r.Post("/admin/logout", authService.Logout)

		// Admin console (JWT protected)
		r.Group(func(r chi.Router) {
			r.Use(mW.AdminAuthMiddleware(redisClient))

			r.Post("/admin/api-keys", authService.IssueAPIKey)
			r.Post("/admin/banks", bankService.CreateBank)
			r.Get("/admin/banks", bankService.ListBanks)
			r.Post("/admin/members", bankService.CreateMember)
			r.Post("/admin/dummies", bankService.CreateDummy)
			r.Post("/admin/accounts", bankService.OpenAccount)
		})

		// Openapi surface (API key protected)
		r.Group(func(r chi.Router) {
			r.Use(mW.APIKeyMiddleware)

			r.Post("/transactions/deposit", transactionHandler.Deposit)
			r.Post("/transactions/withdraw", transactionHandler.Withdraw)
			r.Post("/transactions/transfer", transactionHandler.Transfer)
			r.Get("/transactions", transactionHandler.Search)
			r.Get("/transactions/{transactionId}", transactionHandler.Get)
			r.Patch("/transactions/{transactionId}", transactionHandler.Update)
			r.Delete("/transactions/{transactionId}", transactionHandler.SoftDelete)
			r.Post("/transactions/{transactionId}/refund", transactionHandler.Refund)
			r.Post("/transactions/{transactionId}/one-won-confirm", transactionHandler.OneWonConfirm)

			r.Post("/accounts/{accountId}/one-won", transactionHandler.OneWonProbe)

			r.Post("/products", productHandler.Create)
			r.Get("/products/{productId}", productHandler.Get)
			r.Post("/products/calculate-rate", productHandler.CalculateRate)

			r.Get("/banks/{bankId}/stats", bankService.GetBankStats)

			r.Post("/qr/generate", qrHandler.GenerateQR)
			r.Post("/qr/redeem", qrHandler.RedeemQR)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	settlement.Stop()
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
