package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/maison-solution/rental-scheduler-service/internal/mail"
	"github.com/maison-solution/rental-scheduler-service/internal/monitoring"
	"github.com/maison-solution/rental-scheduler-service/internal/service"
	"github.com/maison-solution/rental-scheduler-service/internal/store"
)

var (
	dbHost    string
	dbPort    int
	dbUser    string
	dbPass    string
	dbName    string
	redisAddr string
	limit     int
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Optional .env for local runs; absence is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Runs the rental back-office batch jobs",
		// Each invocation is one standalone run; the periodic trigger is
		// external (cron or equivalent).
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbHost, "db-host", envOr("DB_HOST", "localhost"), "Database host")
	root.PersistentFlags().IntVar(&dbPort, "db-port", 5432, "Database port")
	root.PersistentFlags().StringVar(&dbUser, "db-user", envOr("DB_USER", "admin"), "Database user")
	root.PersistentFlags().StringVar(&dbPass, "db-pass", envOr("DB_PASS", ""), "Database password")
	root.PersistentFlags().StringVar(&dbName, "db-name", envOr("DB_NAME", "rental_backoffice"), "Database name")
	root.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address")
	root.PersistentFlags().IntVar(&limit, "limit", 0, "Cap on due items per run (0 = unlimited)")

	root.AddCommand(
		jobCommand("candidatures", "Send due deferred candidature responses", func(d *deps) service.BatchJob { return d.candidatures }),
		jobCommand("contracts", "Cancel pending contracts whose signature window expired", func(d *deps) service.BatchJob { return d.contracts }),
		jobCommand("rent", "Create monthly obligations and send payment invitations/reminders", func(d *deps) service.BatchJob { return d.rent }),
		allCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type deps struct {
	runner       *service.Runner
	candidatures *service.CandidatureService
	contracts    *service.ContractService
	rent         *service.RentService
	close        func()
}

// buildDeps wires the repositories and services. Configuration problems
// (unreachable storage, missing mail credentials) abort immediately with a
// single clear log line; no partial processing is attempted.
func buildDeps() (*deps, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName)
	db, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	mailer, err := mail.NewClient(mail.Config{
		BaseURL:    os.Getenv("MAIL_API_URL"),
		APIKey:     os.Getenv("MAIL_API_KEY"),
		FromName:   envOr("MAIL_FROM_NAME", "Gestion locative"),
		FromEmail:  envOr("MAIL_FROM_EMAIL", "noreply@maison-solution.fr"),
		AdminEmail: os.Getenv("MAIL_ADMIN_EMAIL"),
	})
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, err
	}

	monitoring.InitMetrics()

	settings := store.NewSettingsRepository(db, rdb)
	candidatureRepo := store.NewCandidatureRepository(db)
	contractRepo := store.NewContractRepository(db)
	tenantRepo := store.NewTenantRepository(db)
	rentRepo := store.NewRentRepository(db)
	jobRuns := store.NewJobRunRepository(db)

	return &deps{
		runner:       service.NewRunner(jobRuns, settings, limit),
		candidatures: service.NewCandidatureService(candidatureRepo, settings, mailer),
		contracts:    service.NewContractService(contractRepo, tenantRepo, settings, mailer),
		rent:         service.NewRentService(rentRepo, contractRepo, tenantRepo, settings, mailer),
		close: func() {
			db.Close()
			rdb.Close()
		},
	}, nil
}

func jobCommand(name, short string, pick func(*deps) service.BatchJob) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps()
			if err != nil {
				log.Error().Err(err).Msg("Configuration error, aborting")
				return err
			}
			defer d.close()
			return runJob(cmd.Context(), d, pick(d))
		},
	}
}

// allCommand runs the three jobs in sequence. Jobs for distinct entity types
// are independent; running them back to back keeps the exit-code contract
// simple for the external trigger.
func allCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every scheduled job once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps()
			if err != nil {
				log.Error().Err(err).Msg("Configuration error, aborting")
				return err
			}
			defer d.close()

			var firstErr error
			for _, job := range []service.BatchJob{d.candidatures, d.contracts, d.rent} {
				if err := runJob(cmd.Context(), d, job); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
}

// runJob executes one invocation. Item-level failures were already logged by
// the runner and do not fail the process; only run-level errors (including
// every-item-failed) produce a non-zero exit.
func runJob(ctx context.Context, d *deps, job service.BatchJob) error {
	report, err := d.runner.Run(ctx, job)
	if err != nil {
		monitoring.MockAlert("batch job failed", map[string]string{"job": job.Name()})
		return err
	}
	if report.Skipped {
		return nil
	}
	log.Info().
		Str("job", job.Name()).
		Int("selected", report.Selected).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("Job invocation complete")
	return nil
}
