package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/httpapi"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/automation"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/paramstore"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/usecase"
)

// staticSecret serves the shared secret from the environment for
// deployments without parameter-store access.
type staticSecret string

func (s staticSecret) GetParameter(context.Context, string) (string, error) {
	return string(s), nil
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// ---- Configuration (read only here) ----
	port := envDefault("PORT", "8080")
	paramPrefix := envDefault("PARAM_PREFIX", "/lyra-app")
	maxBodyBytes := envInt("MAX_BODY_BYTES", 64<<10)

	// ---- Webhook client ----
	var getter automation.Getter
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		getter = staticSecret(secret)
	} else {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			logger.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		getter = ssmClient
	}

	var opts []automation.Option
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		opts = append(opts, automation.WithBaseURL(url))
	}
	webhookClient, err := automation.NewClient(getter, paramPrefix, opts...)
	if err != nil {
		logger.Error("failed to create webhook client", "err", err)
		os.Exit(1)
	}

	// ---- HTTP server ----
	relayService, err := usecase.NewRelayService(webhookClient, logger)
	if err != nil {
		logger.Error("failed to create relay service", "err", err)
		os.Exit(1)
	}

	server, err := httpapi.NewServer(relayService, logger, httpapi.WithMaxBodyBytes(int64(maxBodyBytes)))
	if err != nil {
		logger.Error("failed to create server", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting relay server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
