package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mushtrack/internal/config"
	"mushtrack/internal/controller"
	"mushtrack/internal/middleware"
	"mushtrack/internal/models"
	"mushtrack/internal/repository"
	"mushtrack/internal/routes"
	"mushtrack/internal/sensor"
	"mushtrack/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard and JSON API",
		Long: `Starts the HTTP server. Configuration comes from the environment and .env:
PORT, ALLOWED_ORIGINS, SESSION_STORE (memory|redis), SESSION_TTL, REDIS_*,
INFLUXDB_*, JWT_SECRET, AUTH0_ISSUER, AUTH0_AUDIENCE, MAX_TEMPERATURE and
MIN_HUMIDITY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cfg)
		},
	}
}

func (a *app) serve(ctx context.Context, cfg config.Config) error {
	logger := a.logger
	defaults := models.AlertSettings{MaxTemperature: cfg.MaxTemperature, MinHumidity: cfg.MinHumidity}

	sessions, err := a.openSessions(ctx, cfg, defaults)
	if err != nil {
		return err
	}
	defer sessions.Close()

	readings, err := a.openReadings(ctx, cfg)
	if err != nil {
		return err
	}
	defer readings.Close()

	hub := controller.NewLiveHub(cfg.AllowedOrigins, logger)
	svc := service.NewGrowthService(sessions, readings, sensor.NewClient(logger), defaults, logger, service.WithPublisher(hub))

	pages, err := controller.NewPageController(svc, logger)
	if err != nil {
		return err
	}

	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		auth, err = middleware.JWT(middleware.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}, logger)
		if err != nil {
			return fmt.Errorf("configuring JWT validation: %w", err)
		}
		logger.Info("API authentication enabled", zap.String("issuer", cfg.JWTIssuer), zap.String("audience", cfg.JWTAudience))
	}

	router := routes.NewRouter(routes.Handlers{
		API:   controller.NewGrowthController(svc, logger),
		Pages: pages,
		Live:  hub,
		Auth:  auth,
	}, cfg.SessionTTL, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.SessionHeader},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running", zap.String("url", fmt.Sprintf("http://localhost:%s", cfg.Port)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (a *app) openSessions(ctx context.Context, cfg config.Config, defaults models.AlertSettings) (repository.SessionRepository, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		a.logger.Info("Using in-memory session store", zap.Duration("ttl", cfg.SessionTTL))
		return repository.NewMemorySessionRepository(cfg.SessionTTL, defaults), nil
	}

	client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Using redis session store", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	return repository.NewRedisSessionRepository(client, cfg.SessionTTL, defaults, a.logger), nil
}

func (a *app) openReadings(ctx context.Context, cfg config.Config) (repository.ReadingRepository, error) {
	if !cfg.InfluxEnabled() {
		return repository.NopReadingRepository{}, nil
	}

	repo := repository.NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, a.logger)
	if err := repo.EnsureBucket(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("preparing InfluxDB bucket: %w", err)
	}
	a.logger.Info("Mirroring readings to InfluxDB", zap.String("url", cfg.InfluxDBURL), zap.String("bucket", cfg.InfluxDBBucket))
	return repo, nil
}
