// Command sweeper is the DynamoDB Streams Lambda that clears load carriers
// still pointing at deleted boats.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/jacentio/moorage/internal/config"
	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/internal/logging"
	"github.com/jacentio/moorage/store"
	"github.com/jacentio/moorage/stream"
)

var version = "dev"

func main() {
	handler, err := newHandler(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lambda.Start(handler.HandleRemovals)
}

func newHandler(ctx context.Context) (*stream.Handler, error) {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.LoadStore(os.Getenv("MOORAGE_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.DynamoDB.InMemory {
		return nil, fmt.Errorf("the sweeper needs DynamoDB; dynamodb.in_memory is set")
	}

	log := logging.New(cfg.Logging, version).With("component", "sweeper")
	slog.SetDefault(log)

	client, err := store.NewClient(ctx, store.ClientConfig{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating DynamoDB client: %w", err)
	}

	s := store.New(client, fleet.StoreConfig(fleet.Tables{
		Boats: cfg.DynamoDB.Tables.Boats,
		Loads: cfg.DynamoDB.Tables.Loads,
		Users: cfg.DynamoDB.Tables.Users,
	}, cfg.DynamoDB.MaxIDAttempts))

	registry := fleet.Registry(cfg.DynamoDB.Indexes.Carrier)
	for _, rel := range registry.AllRelationships() {
		log.Info("sweeping references",
			"parent", rel.ParentKind, "parent_table", s.Table(rel.ParentKind),
			"child", rel.ChildKind, "index", rel.ChildIndex, "attr", rel.ReferenceAttr)
	}
	return stream.NewHandler(s, registry, log), nil
}
