package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/Kilincarslan-Enterprises/lyra-app/handler"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/automation"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/paramstore"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	webhookURL := os.Getenv("WEBHOOK_URL")
	maxBodyBytes := envInt("MAX_BODY_BYTES", 64<<10)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	var opts []automation.Option
	if webhookURL != "" {
		opts = append(opts, automation.WithBaseURL(webhookURL))
	}
	webhookClient, err := automation.NewClient(ssmClient, paramPrefix, opts...)
	if err != nil {
		slog.Error("failed to create webhook client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	relayService, err := usecase.NewRelayService(webhookClient, slog.Default())
	if err != nil {
		slog.Error("failed to create relay service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(relayService, handler.WithMaxBodyBytes(int64(maxBodyBytes)))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
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
