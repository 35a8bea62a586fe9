package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/config"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/api"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/seed"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title auto-prompt API
// @version 1.0
// @description Prompt template, history and optimization backend.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:   "auto-prompt",
	Short: "Prompt management backend",
	Long: `auto-prompt serves the prompt template, history and optimization API.

Running without a subcommand is the same as "serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed the default admin and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin account if it does not exist and exit",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the logger and opens the store.
func bootstrap() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		return nil, err
	}
	if err := database.Migrate(database.DB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if _, err := bootstrap(); err != nil {
		return err
	}
	defer logger.Sync()

	logger.L().Info("Schema is up to date")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return seedAdmin(cmd.Context(), cfg)
}

func seedAdmin(ctx context.Context, cfg *config.Config) error {
	created, err := seed.EnsureDefaultAdmin(ctx, database.DB, seed.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	logger.L().Info("Default admin checked",
		zap.String("username", cfg.DefaultUsername),
		zap.Bool("created", created))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := database.ConnectRedis(cfg); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if database.RedisClient == nil {
		log.Warn("REDIS_HOST not set; token revocation and caching are disabled")
	}

	key, iv, err := cfg.CredentialMaterial()
	if err != nil {
		return err
	}
	cipher, err := crypto.NewCipher(key, iv)
	if err != nil {
		return fmt.Errorf("credential cipher: %w", err)
	}
	services.SetCredentialCipher(cipher)

	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, clockwork.NewRealClock())
	services.SetTokenService(tokens)

	if err := seedAdmin(cmd.Context(), cfg); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           api.NewRouter(cfg, tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining connections", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if database.RedisClient != nil {
		_ = database.RedisClient.Close()
	}
	log.Info("Server stopped")
	return nil
}
