// Command moorage serves the boats and loads REST API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jacentio/moorage/internal/api"
	"github.com/jacentio/moorage/internal/auth"
	"github.com/jacentio/moorage/internal/config"
	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/internal/logging"
	"github.com/jacentio/moorage/store"
)

// Version information, set at build time via ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the server and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load(os.Getenv("MOORAGE_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	slog.SetDefault(log)
	log.Info("starting moorage", "version", version)

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	svc, err := newService(ctx, cfg.DynamoDB, log)
	if err != nil {
		return err
	}

	server, err := api.New(api.Deps{
		Config:   cfg.Server,
		Logger:   log,
		Service:  svc,
		Verifier: verifier,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	return server.Close()
}

// newVerifier builds the bearer token verifier, reading the RS256 public
// key from disk when configured.
func newVerifier(cfg config.AuthConfig) (*auth.Verifier, error) {
	ac := auth.Config{
		Algorithm: cfg.Algorithm,
		Secret:    cfg.Secret,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		Leeway:    time.Duration(cfg.LeewaySeconds) * time.Second,
	}
	if cfg.PublicKeyFile != "" {
		keyPEM, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading auth public key: %w", err)
		}
		ac.PublicKeyPEM = keyPEM
	}

	v, err := auth.NewVerifier(ac)
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}
	return v, nil
}

// newService backs the fleet service with DynamoDB, or with in-process
// repositories when configured for local runs.
func newService(ctx context.Context, cfg config.DynamoDBConfig, log *slog.Logger) (*fleet.Service, error) {
	if cfg.InMemory {
		log.Warn("using in-memory repositories; data is lost on exit")
		return fleet.NewService(fleet.NewMemoryBoats(), fleet.NewMemoryLoads(), fleet.NewMemoryUsers(), log), nil
	}

	client, err := store.NewClient(ctx, store.ClientConfig{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating DynamoDB client: %w", err)
	}

	s := store.New(client, fleet.StoreConfig(fleet.Tables{
		Boats: cfg.Tables.Boats,
		Loads: cfg.Tables.Loads,
		Users: cfg.Tables.Users,
	}, cfg.MaxIDAttempts))
	log.Info("DynamoDB store ready",
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"boats", s.Table(fleet.KindBoat),
		"loads", s.Table(fleet.KindLoad),
	)

	return fleet.NewService(
		fleet.NewDynamoBoats(s, cfg.Indexes.Owner),
		fleet.NewDynamoLoads(s, cfg.Indexes.Carrier),
		fleet.NewDynamoUsers(s),
		log,
	), nil
}
