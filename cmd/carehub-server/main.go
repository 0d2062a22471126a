package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carehub/carehub/internal/config"
	"github.com/carehub/carehub/internal/domain/admission"
	"github.com/carehub/carehub/internal/domain/booking"
	"github.com/carehub/carehub/internal/domain/consultation"
	"github.com/carehub/carehub/internal/domain/document"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/domain/medicalhistory"
	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/domain/prescription"
	"github.com/carehub/carehub/internal/platform/audit"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/middleware"
	"github.com/carehub/carehub/internal/platform/notification"
	"github.com/carehub/carehub/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "carehub-server",
		Short: "CareHub bed allocation and patient record API",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(*cobra.Command, []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: runWithMigrator(func(ctx context.Context, m *db.Migrator) error {
			applied, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Printf("applied %d migration(s)\n", applied)
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied",
		RunE: runWithMigrator(func(ctx context.Context, m *db.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			return printMigrationTable(os.Stdout, statuses)
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Rollbacks are intentionally unsupported",
		RunE: func(*cobra.Command, []string) error {
			fmt.Println("Rollbacks are not supported: patient data cannot be un-migrated safely.")
			fmt.Println("Ship a forward migration that reverses the schema change instead.")
			return nil
		},
	}

	for _, cmd := range []*cobra.Command{up, status} {
		cmd.Flags().String("dir", "./migrations", "migrations directory")
	}
	root.AddCommand(up, status, down)
	return root
}

// runWithMigrator wraps a migration action with the shared setup: load
// config, open a pool for the duration of the run, close it on the way out.
func runWithMigrator(fn func(context.Context, *db.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		return fn(ctx, db.NewMigrator(pool, dir))
	}
}

func printMigrationTable(w io.Writer, statuses []db.MigrationStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tAPPLIED AT")
	for _, s := range statuses {
		state, when := "pending", ""
		if s.Applied {
			state = "applied"
			if s.AppliedAt != nil {
				when = s.AppliedAt.Format(time.DateTime)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, state, when)
	}
	return tw.Flush()
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	defer pool.Close()
	logger.Info().Msg("database pool ready")

	e := newRouter(cfg, logger, pool)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("listening")
		var serveErr error
		if cfg.TLSEnabled {
			serveErr = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			serveErr = e.Start(addr)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal().Err(serveErr).Msg("listener failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("shutdown did not complete cleanly")
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// newRouter assembles the middleware chain and mounts the health probes and
// every domain surface.
func newRouter(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.SanitizeWithLogger(logger),
		middleware.BodyLimit("1M", "26M"),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		}),
		authMiddleware(cfg, logger),
		// Every API request leaves a structured log line and a durable
		// access_log row.
		middleware.Audit(logger, audit.NewStore(pool)),
	)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(resolveRateLimit(cfg)))
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))

	mountDomains(apiV1, logger, pool)
	return e
}

// authMiddleware selects the token validation strategy for the configured
// auth mode.
func authMiddleware(cfg *config.Config, logger zerolog.Logger) echo.MiddlewareFunc {
	switch mode := cfg.ResolvedAuthMode(); mode {
	case "development":
		logger.Warn().Msg("development auth mode: unauthenticated requests run as admin")
		return auth.DevAuthMiddleware()
	case "hmac":
		logger.Info().Str("mode", mode).Msg("token validation configured")
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthHMACSecret),
		})
	default:
		logger.Info().Str("mode", mode).Str("issuer", cfg.AuthIssuer).Msg("token validation configured")
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		})
	}
}

// resolveRateLimit returns the rate limit settings from config, falling back
// to the package defaults when the configured rate is unset or invalid.
func resolveRateLimit(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	if rl.BurstSize <= 0 {
		rl.BurstSize = int(rl.RequestsPerSecond)
	}
	return rl
}

// mountDomains wires the domain services onto the API group. Order matters
// only where services feed each other: admissions publish to the websocket
// hub and notify through the notification manager, bookings feed the bed
// queue, and the history timeline reads the four record repositories.
func mountDomains(apiV1 *echo.Group, logger zerolog.Logger, pool *pgxpool.Pool) {
	hub := websocket.NewHub(logger)
	websocket.NewWebSocketHandler(hub).RegisterRoutes(apiV1)

	// Delivery is logged until a real provider is configured; the manual
	// send endpoints are staff-only.
	notifier := notification.NewManager(
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		notification.NewTemplateEngine(),
	)
	notification.NewHandler(notifier).
		RegisterRoutes(apiV1.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHospital)))

	patientRepo := patient.NewPatientRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	hospitalRepo := hospital.NewHospitalRepoPG(pool)
	locationRepo := hospital.NewLocationRepoPG(pool)
	bedRepo := hospital.NewBedRepoPG(pool)
	hospitalSvc := hospital.NewService(hospitalRepo, locationRepo, bedRepo)
	hospital.NewHandler(hospitalSvc).RegisterRoutes(apiV1)

	queueRepo := admission.NewQueueRepoPG(pool)
	admissionSvc := admission.NewService(queueRepo, bedRepo)
	admissionSvc.SetPool(pool)
	admissionSvc.SetEventPublisher(hub)
	admissionSvc.SetNotifier(notifier, patientRepo, hospitalRepo)
	admissionSvc.SetLogger(logger)
	admission.NewHandler(admissionSvc).RegisterRoutes(apiV1)

	bookingRepo := booking.NewBookingRepoPG(pool)
	bookingSvc := booking.NewService(bookingRepo)
	bookingSvc.SetBedQueue(admissionSvc)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1)

	prescriptionRepo := prescription.NewPrescriptionRepoPG(pool)
	prescription.NewHandler(prescription.NewService(prescriptionRepo)).RegisterRoutes(apiV1)

	consultationRepo := consultation.NewConsultationRepoPG(pool)
	consultation.NewHandler(consultation.NewService(consultationRepo)).RegisterRoutes(apiV1)

	// Document metadata lives in Postgres, content in the blob store.
	documentRepo := document.NewDocumentRepoPG(pool)
	documentSvc := document.NewService(documentRepo, blobstore.NewInMemoryBlobStore())
	document.NewHandler(documentSvc).RegisterRoutes(apiV1)

	historySvc := medicalhistory.NewService(bookingRepo, prescriptionRepo, documentRepo, consultationRepo)
	historySvc.SetLogger(logger)
	medicalhistory.NewHandler(historySvc).RegisterRoutes(apiV1)
}
