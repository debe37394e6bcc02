package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/activity"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/medicine"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/room"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/docnum"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital administration and billing service",
	}
	root.AddCommand(serveCmd(), migrateCmd(), accrueCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

// services bundles the wired domain layer.
type services struct {
	patients *patient.Service
	medicine *medicine.Service
	rooms    *room.Service
	billing  *billing.Service
	activity *activity.Service
}

func buildServices(pool *pgxpool.Pool, reg *metrics.Registry) (*services, error) {
	numbers, err := docnum.NewGenerator(1)
	if err != nil {
		return nil, fmt.Errorf("document numbers: %w", err)
	}

	activitySvc := activity.NewService(activity.NewRepoPG(pool))

	patientSvc := patient.NewService(patient.NewRepoPG(pool), numbers)
	patientSvc.SetActivityRecorder(activitySvc)

	medicineSvc := medicine.NewService(medicine.NewRepoPG(pool))
	medicineSvc.SetActivityRecorder(activitySvc)
	medicineSvc.SetMetrics(reg)

	roomRepo := room.NewRepoPG(pool)
	roomSvc := room.NewService(roomRepo)
	roomSvc.SetActivityRecorder(activitySvc)

	billingSvc := billing.NewService(billing.NewRepoPG(pool), numbers)
	billingSvc.SetTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})
	billingSvc.SetDispenser(medicineSvc)
	billingSvc.SetRoomSource(&roomSourceAdapter{repo: roomRepo})
	billingSvc.SetActivityRecorder(activitySvc)
	billingSvc.SetMetrics(reg)

	return &services{
		patients: patientSvc,
		medicine: medicineSvc,
		rooms:    roomSvc,
		billing:  billingSvc,
		activity: activitySvc,
	}, nil
}

// roomSourceAdapter exposes the room repository to billing in the shape
// its accrual batch consumes.
type roomSourceAdapter struct {
	repo room.Repository
}

func toAccruable(r *room.Room) billing.AccruableRoom {
	return billing.AccruableRoom{
		ID:              r.ID,
		Number:          r.Number,
		DailyRate:       r.DailyRate,
		CheckInAt:       r.CheckInAt,
		ActiveInvoiceID: r.ActiveInvoiceID,
		LastAccruedAt:   r.LastAccruedAt,
	}
}

func (a *roomSourceAdapter) ListOccupied(ctx context.Context) ([]billing.AccruableRoom, error) {
	rooms, err := a.repo.ListOccupied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]billing.AccruableRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toAccruable(r))
	}
	return out, nil
}

func (a *roomSourceAdapter) FindByActiveInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.AccruableRoom, error) {
	rooms, err := a.repo.ListOccupied(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		if r.ActiveInvoiceID != nil && *r.ActiveInvoiceID == invoiceID {
			acc := toAccruable(r)
			return &acc, nil
		}
	}
	return nil, nil
}

func (a *roomSourceAdapter) AdvanceAccrual(ctx context.Context, roomID uuid.UUID, mark time.Time) error {
	return a.repo.AdvanceAccrual(ctx, roomID, mark)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			reg := metrics.NewRegistry()
			svcs, err := buildServices(pool, reg)
			if err != nil {
				return err
			}

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			e.Use(middleware.Recovery(logger))
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
			e.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimitRPS,
				BurstSize:         cfg.RateLimitBurst,
			}))
			e.Use(reg.Middleware())

			e.GET("/health", db.HealthHandler(pool))
			e.GET("/metrics", reg.PrometheusHandler())

			api := e.Group("/api/v1")
			if cfg.IsDev() {
				api.Use(auth.DevAuthMiddleware())
			} else {
				api.Use(auth.JWTMiddleware(auth.JWTConfig{
					SigningKey: []byte(cfg.JWTSecret),
					Issuer:     cfg.JWTIssuer,
				}))
			}

			patient.NewHandler(svcs.patients).RegisterRoutes(api)
			medicine.NewHandler(svcs.medicine).RegisterRoutes(api)
			room.NewHandler(svcs.rooms).RegisterRoutes(api)
			billing.NewHandler(svcs.billing).RegisterRoutes(api)
			activity.NewHandler(svcs.activity).RegisterRoutes(api)

			srv := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      e,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			go func() {
				logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied && s.AppliedAt != nil {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-30s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func accrueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accrue",
		Short: "Post daily room charges to active invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs, err := buildServices(pool, metrics.NewRegistry())
			if err != nil {
				return err
			}

			res, err := svcs.billing.RunAccrual(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().
				Int("rooms_updated", res.RoomsUpdated).
				Int("lines_posted", res.LinesPosted).
				Str("amount_posted", res.AmountPosted.String()).
				Int("skipped", res.Skipped).
				Msg("accrual run complete")
			return nil
		},
	}
}
