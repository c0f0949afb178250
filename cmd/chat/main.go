// Command chat is an interactive terminal client for the relay. It
// loads the user's durable history, then reads prompts from stdin and
// runs each one through the conversation controller: optimistic local
// echo, relay round trip, persistence, reconciliation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/conversation"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
	"github.com/Kilincarslan-Enterprises/lyra-app/internal/history"
	relayclient "github.com/Kilincarslan-Enterprises/lyra-app/internal/integrations/relay"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	relayURL := mustEnv("RELAY_URL")
	owner := mustEnv("CHAT_USER_ID")

	store, cleanup, err := newHistoryStore(ctx)
	if err != nil {
		slog.Error("failed to create history store", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	client, err := relayclient.NewClient(relayURL)
	if err != nil {
		slog.Error("failed to create relay client", "err", err)
		os.Exit(1)
	}
	if err := client.Health(ctx); err != nil {
		slog.Warn("relay health check failed", "err", err)
	}

	ctrl, err := conversation.New(owner, client, store)
	if err != nil {
		slog.Error("failed to create conversation controller", "err", err)
		os.Exit(1)
	}

	exchanges, err := ctrl.LoadHistory(ctx)
	if err != nil {
		slog.Warn("could not load history, starting empty", "err", err)
	}
	for _, ex := range exchanges {
		printExchange(ex)
	}

	fmt.Println("Type a message and press enter. Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		ex, err := ctrl.Submit(ctx, prompt)
		if err != nil {
			color.Red("error: %v\n", err)
			continue
		}
		printReply(ex)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("stdin read failed", "err", err)
		os.Exit(1)
	}
	fmt.Println()
}

func newHistoryStore(ctx context.Context) (history.Store, func(), error) {
	switch backend := envDefault("HISTORY_BACKEND", "postgres"); backend {
	case "postgres":
		store, err := history.NewPostgresStore(ctx, mustEnv("DATABASE_URL"))
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case "dynamodb":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), mustEnv("HISTORY_TABLE"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown HISTORY_BACKEND %q", backend)
	}
}

func printExchange(ex domain.Exchange) {
	cyan := color.New(color.FgCyan)
	cyan.Print("you: ")
	fmt.Println(ex.Prompt)
	printReply(ex)
}

func printReply(ex domain.Exchange) {
	if ex.Reply == "" {
		return
	}
	if ex.Status == domain.StatusFailed {
		color.Red("error: %s\n", ex.Reply)
		return
	}
	green := color.New(color.FgGreen)
	green.Print("assistant: ")
	fmt.Println(ex.Reply)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
