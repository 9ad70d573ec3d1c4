package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/mail"
	"github.com/maison-solution/rental-scheduler-service/internal/monitoring"
	"github.com/maison-solution/rental-scheduler-service/internal/service"
	"github.com/maison-solution/rental-scheduler-service/internal/store"
	"github.com/maison-solution/rental-scheduler-service/internal/web"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	var (
		port      = flag.Int("port", 8080, "HTTP port for the public token-gated endpoints")
		dbHost    = flag.String("db-host", "localhost", "Database host")
		dbPort    = flag.Int("db-port", 5432, "Database port")
		dbUser    = flag.String("db-user", "admin", "Database user")
		dbPass    = flag.String("db-pass", "", "Database password")
		dbName    = flag.String("db-name", "rental_backoffice", "Database name")
		redisAddr = flag.String("redis-addr", "localhost:6379", "Redis address")
	)
	flag.Parse()

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	db, err := store.Open(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer rdb.Close()

	mailer, err := mail.NewClient(mail.Config{
		BaseURL:    os.Getenv("MAIL_API_URL"),
		APIKey:     os.Getenv("MAIL_API_KEY"),
		FromName:   os.Getenv("MAIL_FROM_NAME"),
		FromEmail:  os.Getenv("MAIL_FROM_EMAIL"),
		AdminEmail: os.Getenv("MAIL_ADMIN_EMAIL"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Mail provider configuration error")
	}

	monitoring.InitMetrics()

	settings := store.NewSettingsRepository(db, rdb)
	contractRepo := store.NewContractRepository(db)
	tenantRepo := store.NewTenantRepository(db)
	rentRepo := store.NewRentRepository(db)

	contracts := service.NewContractService(contractRepo, tenantRepo, settings, mailer)
	rents := service.NewRentService(rentRepo, contractRepo, tenantRepo, settings, mailer)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: web.NewServer(contracts, rents).Router(),
	}

	go func() {
		log.Info().Msgf("Public HTTP server listening on port %d", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Let in-flight signature and payment requests drain before exiting.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server exiting")
}
