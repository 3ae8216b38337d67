package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/format-smormat/backend/internal/api"
	"github.com/format-smormat/backend/internal/config"
	"github.com/format-smormat/backend/internal/converter"
	"github.com/format-smormat/backend/internal/intake"
	"github.com/format-smormat/backend/internal/logging"
	"github.com/format-smormat/backend/internal/records"
	"github.com/format-smormat/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to resolve config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, configPath, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// resolveConfigPath prefers HTMLMD_CONFIG, then htmlmd.yaml next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("HTMLMD_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "htmlmd.yaml"), nil
}

func run(cfg *config.AppConfig, configPath string, logger *zap.Logger) error {
	store := records.NewStore()
	manager := intake.NewManager(store, converter.NewEngine(), intake.Options{
		NamingDelay:  cfg.Intake.NamingDelay(),
		ConvertDelay: cfg.Intake.ConvertDelay(),
		MaxFileSize:  cfg.Intake.MaxFileSize,
	}, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:         store,
		Intake:        manager,
		Logger:        logger,
		Version:       Version,
		MaxUploadSize: cfg.Intake.MaxFileSize,
	}))

	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", zap.Error(err))
			embeddedMode = false
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("starting htmlmd server",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.Bool("embeddedPage", embeddedMode),
		zap.Duration("namingDelay", cfg.Intake.NamingDelay()),
		zap.Duration("convertDelay", cfg.Intake.ConvertDelay()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	// Let in-flight pipelines finish so no goroutine writes after exit.
	manager.Wait()
	logger.Info("stopped", zap.Int("records", store.Len()))
	return nil
}
