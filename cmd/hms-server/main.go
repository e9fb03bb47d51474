package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicore/hms/internal/config"
	"github.com/medicore/hms/internal/domain/admission"
	"github.com/medicore/hms/internal/domain/billing"
	"github.com/medicore/hms/internal/domain/catalog"
	"github.com/medicore/hms/internal/domain/consultation"
	"github.com/medicore/hms/internal/domain/nursing"
	"github.com/medicore/hms/internal/platform/auth"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(billingCycleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the hospital management API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}

			for _, st := range statuses {
				mark := "pending"
				if st.Applied {
					mark = "applied " + st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", st.Version, st.Name, mark)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// billingCycleCmd runs the daily room charge cycle once and exits. Meant to
// be invoked from cron in deployments that do not use the HTTP trigger.
func billingCycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing-cycle",
		Short: "Recurring billing operations",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily room charge cycle once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg)
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			app, err := buildApp(cfg, pool, logger)
			if err != nil {
				return err
			}

			report, err := app.accumulator.Run(ctx)
			if err != nil {
				return fmt.Errorf("daily charge cycle: %w", err)
			}
			fmt.Printf("Billed %d day(s) across %d case(s); %d skipped.\n",
				report.DaysBilled, report.Cases, report.Skipped)
			return nil
		},
	}
	cmd.AddCommand(runCmd)

	return cmd
}

// app holds the wired service graph. Everything hangs off the single pgx pool.
type app struct {
	catalogHandler      *catalog.Handler
	billingHandler      *billing.Handler
	admissionHandler    *admission.Handler
	consultationHandler *consultation.Handler
	nursingHandler      *nursing.Handler
	accumulator         *billing.Accumulator
}

func buildApp(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	hospitals := catalog.NewHospitalRepoPG(pool)
	departments := catalog.NewDepartmentRepoPG(pool)
	doctors := catalog.NewDoctorRepoPG(pool)
	patients := catalog.NewPatientRepoPG(pool)
	insurers := catalog.NewInsurerRepoPG(pool)
	rateCards := catalog.NewRateCardRepoPG(pool)
	rooms := catalog.NewRoomRepoPG(pool)

	rates := catalog.NewRatesService(rateCards)
	charges := billing.NewChargeBuilder(rates)

	bills := billing.NewBillRepoPG(pool)
	billingSvc := billing.NewService(bills, rates)

	cases := admission.NewCaseRepoPG(pool)
	txRunner := db.PoolRunner{Pool: pool}
	admissionSvc := admission.NewService(cases, rooms, billingSvc, charges, txRunner)

	accumulator := billing.NewAccumulator(bills, admissionSvc, charges, loc, logger)

	consultations := consultation.NewConsultationRepoPG(pool)
	consultationSvc := consultation.NewService(consultations, admissionSvc, doctors, billingSvc, charges, txRunner)

	medications := nursing.NewMedicationRepoPG(pool)
	nursingSvc := nursing.NewService(medications, admissionSvc, billingSvc, charges, txRunner)

	return &app{
		catalogHandler:      catalog.NewHandler(hospitals, departments, doctors, patients, insurers, rateCards, rooms),
		billingHandler:      billing.NewHandler(billingSvc, accumulator),
		admissionHandler:    admission.NewHandler(admissionSvc),
		consultationHandler: consultation.NewHandler(consultationSvc),
		nursingHandler:      nursing.NewHandler(nursingSvc),
		accumulator:         accumulator,
	}, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	app, err := buildApp(cfg, pool, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthIssuer == "" {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	app.catalogHandler.RegisterRoutes(api)
	app.admissionHandler.RegisterRoutes(api)
	app.billingHandler.RegisterRoutes(api)
	app.consultationHandler.RegisterRoutes(api)
	app.nursingHandler.RegisterRoutes(api)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
