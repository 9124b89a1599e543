// ==============================================================================
// FRAUD DETECTION SERVICE MAIN - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"simtinel/internal/device"
	"simtinel/internal/fraud"
	"simtinel/internal/handler"
	"simtinel/internal/middleware"
	"simtinel/internal/realtime"
	"simtinel/internal/repository/postgres"
	"simtinel/internal/risk"
	"simtinel/internal/simulation"
	"simtinel/internal/sms"
	"simtinel/pkg/config"
	"simtinel/pkg/logger"
	"simtinel/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("simtinel")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting fraud detection service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Redis connected", nil)

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	deviceEventRepo := postgres.NewDeviceEventRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	predictionRepo := postgres.NewPredictionRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	// Realtime hub
	hub := realtime.NewHub(log)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Notification gate
	quota := sms.NewQuota(cfg.SMS.AlertDailyLimit, cfg.SMS.DailyLimit)
	var provider sms.Provider
	if cfg.SMS.APIKey != "" {
		provider = sms.NewFast2SMSProvider(cfg.SMS)
		log.Info("SMS gateway configured", map[string]interface{}{
			"alert_daily_limit": cfg.SMS.AlertDailyLimit,
			"daily_limit":       cfg.SMS.DailyLimit,
		})
	} else {
		log.Warn("SMS gateway credential missing, running in mock mode", nil)
	}
	smsService := sms.NewService(provider, quota, log)

	// Services
	engine := risk.NewEngine(cfg.Fraud)
	fraudService := fraud.NewService(
		accountRepo, deviceEventRepo, transactionRepo, predictionRepo, alertRepo,
		engine, smsService, hub, cfg.Fraud, log,
	)
	deviceService := device.NewService(deviceEventRepo, log)
	simService := simulation.NewService(
		accountRepo, deviceEventRepo, transactionRepo, fraudService, smsService, hub, log,
	)

	// Handlers
	val := validator.New()
	analysisHandler := handler.NewAnalysisHandler(fraudService, val, log)
	simulationHandler := handler.NewSimulationHandler(simService, val, log)
	smsHandler := handler.NewSMSHandler(smsService, log)
	accountsHandler := handler.NewAccountsHandler(accountRepo, transactionRepo, deviceService, val, log)
	alertsHandler := handler.NewAlertsHandler(alertRepo, predictionRepo, accountRepo, log)
	systemHandler := handler.NewSystemHandler(db, redisClient, hub, log)

	// Router
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)

	// Health and realtime endpoints stay outside the body limit and rate
	// limiter; websocket upgrades must not be buffered or throttled.
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/ready", systemHandler.Ready).Methods("GET")
	r.HandleFunc("/ws", hub.HandleWebSocket)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.BodyLimit(1 << 20))
	api.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)

	api.HandleFunc("/analyze", analysisHandler.Analyze).Methods("POST")
	api.HandleFunc("/simulate/alert", simulationHandler.Simulate).Methods("POST")
	api.HandleFunc("/sms/quota", smsHandler.Quota).Methods("GET")

	api.HandleFunc("/accounts", accountsHandler.Create).Methods("POST")
	api.HandleFunc("/accounts", accountsHandler.List).Methods("GET")
	api.HandleFunc("/accounts/{id}", accountsHandler.Get).Methods("GET")
	api.HandleFunc("/accounts/{id}/phone", accountsHandler.UpdatePhone).Methods("PUT")
	api.HandleFunc("/accounts/{id}/device", accountsHandler.RegisterDevice).Methods("POST")
	api.HandleFunc("/accounts/{id}/device", accountsHandler.DeviceHistory).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", accountsHandler.Transactions).Methods("GET")

	api.HandleFunc("/alerts", alertsHandler.Feed).Methods("GET")
	api.HandleFunc("/stats", alertsHandler.Stats).Methods("GET")

	// Admin surface requires a verified token; issuance is external.
	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.Authenticate)
	admin.Use(idemMW.Require)
	admin.HandleFunc("/incidents", alertsHandler.Incidents).Methods("GET")
	admin.HandleFunc("/alerts/{id}/status", alertsHandler.UpdateStatus).Methods("PATCH")

	// No global read/write deadlines: websocket connections on /ws are
	// long-lived and manage their own deadlines in the hub.
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("Fraud detection service started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	hubCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Stopped gracefully", nil)
}
