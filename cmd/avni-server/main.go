package main

import (
	"context"
	"fmt"
	"io/fs"
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

	"github.com/ombhardwajj/avni-server/internal/bundle"
	"github.com/ombhardwajj/avni-server/internal/config"
	"github.com/ombhardwajj/avni-server/internal/domain/concept"
	"github.com/ombhardwajj/avni-server/internal/domain/dashboard"
	"github.com/ombhardwajj/avni-server/internal/domain/encounter"
	"github.com/ombhardwajj/avni-server/internal/domain/observation"
	"github.com/ombhardwajj/avni-server/internal/domain/organisation"
	"github.com/ombhardwajj/avni-server/internal/domain/subject"
	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/cache"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/middleware"
	"github.com/ombhardwajj/avni-server/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "avni-server",
		Short:        "Avni field data server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}

// migrationFS prefers MIGRATIONS_DIR so operators can ship extra files
// without rebuilding.
func migrationFS(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationFS(cfg)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationFS(cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			printStatus(cmd, statuses)
			return nil
		},
	})
	return cmd
}

func printStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import organisation metadata",
	}

	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "Import concepts and group dashboards from a bundle directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			orgUUID, _ := cmd.Flags().GetString("org")
			username, _ := cmd.Flags().GetString("user")

			b, err := bundle.Load(dir)
			if err != nil {
				return err
			}
			if b.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Bundle has nothing to import.")
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			orgs := organisation.NewService(organisation.NewRepo(pool), cache.NewMemoryKV(), cfg.CatalogCacheTTL)
			uc, err := orgs.ResolveUser(ctx, username)
			if err != nil {
				return fmt.Errorf("user %s: %w", username, err)
			}
			if orgUUID != "" {
				org, err := orgs.ByUUID(ctx, orgUUID)
				if err != nil {
					return err
				}
				uc.Organisation = *org
			}

			ctx, release, err := db.Pin(ctx, pool, uc.OrganisationID())
			if err != nil {
				return err
			}
			defer release()

			tx := db.NewTransactor(pool)
			conceptSvc := concept.NewService(concept.NewRepo(pool), orgs, tx, logger)
			dashboardSvc := dashboard.NewService(dashboard.NewRepo(pool), tx, logger)
			if err := bundle.NewImporter(conceptSvc, dashboardSvc, logger).Import(ctx, uc, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d concept(s) and %d group dashboard(s) into %s.\n",
				len(b.Concepts), len(b.GroupDashboards), uc.Organisation.Name)
			return nil
		},
	}
	bundleCmd.Flags().String("dir", ".", "Directory holding concepts and groupDashboards files")
	bundleCmd.Flags().String("org", "", "Target organisation uuid (defaults to the user's organisation)")
	bundleCmd.Flags().String("user", "admin", "Username the import acts as")

	cmd.AddCommand(bundleCmd)
	return cmd
}

// catalogKV uses Redis when REDIS_URL is set and an in-process cache otherwise.
func catalogKV(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.KV, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("using in-memory catalog cache")
		return cache.NewMemoryKV(), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("using redis catalog cache")
	return cache.NewRedisKV(client), func() { _ = client.Close() }, nil
}

// newServer wires every handler onto a fresh echo instance.
func newServer(cfg *config.Config, pool *pgxpool.Pool, kv cache.KV, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "AUTH-TOKEN", auth.UserNameHeader, "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	tx := db.NewTransactor(pool)
	orgs := organisation.NewService(organisation.NewRepo(pool), kv, cfg.CatalogCacheTTL)

	api := e.Group("/api/v1")
	if cfg.ResolvedAuthMode() == "development" {
		api.Use(auth.DevAuthMiddleware(cfg.DevUsername))
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	api.Use(auth.UserContextMiddleware(orgs))
	api.Use(db.OrganisationMiddleware(pool, auth.OrganisationOf))

	conceptSvc := concept.NewService(concept.NewRepo(pool), orgs, tx, logger)
	obs := observation.NewService(conceptSvc)

	subjectRepo := subject.NewRepo(pool)
	catalog := subject.NewCatalog(subjectRepo, kv, cfg.CatalogCacheTTL)

	subject.NewHandler(subject.NewService(subjectRepo, catalog, obs, tx, logger)).RegisterRoutes(api)
	encounter.NewHandler(encounter.NewService(encounter.NewRepo(pool), obs, tx, logger)).RegisterRoutes(api)
	concept.NewHandler(conceptSvc).RegisterRoutes(api)
	dashboard.NewHandler(dashboard.NewService(dashboard.NewRepo(pool), tx, logger)).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	kv, closeKV, err := catalogKV(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to redis")
		return err
	}
	defer closeKV()

	e := newServer(cfg, pool, kv, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
