package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	consoleauth "github.com/mailbridge/console-auth"
	echoapi "github.com/mailbridge/console-auth/api/echo"
	"github.com/mailbridge/console-auth/cache"
	"github.com/mailbridge/console-auth/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console auth endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	oauthCfg, err := config.LoadOAuthConfig(cfg.OAuthConfigPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load oauth config")
		return err
	}
	key, err := config.LoadSigningKey(cfg.SigningKeyPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load signing key")
		return err
	}

	tokens := consoleauth.NewTokenClient(oauthCfg.Client, logger)
	flows := consoleauth.NewFlowService(
		oauthCfg, key, tokens,
		time.Duration(cfg.LeewaySec)*time.Second,
		logger,
	)
	states := cache.NewStateStore(time.Duration(cfg.StateTTLSec) * time.Second)
	defer states.Stop()

	e := echo.New()
	e.HideBanner = true
	echoapi.NewAuthAPI(oauthCfg, flows, states, logger).RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("console-auth listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

func newLogger(cfg *config.ServerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.LogPretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
