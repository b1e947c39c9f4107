package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Skotchmaster/plugtech/internal/config"
	"github.com/Skotchmaster/plugtech/internal/es"
	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/logging"
)

// indexer mirrors product_events into the Elasticsearch products index.
func main() {
	cfg := config.Load(".env")
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-indexer")

	config.MustNonEmpty(cfg.ESURL, "ES_URL")
	if len(cfg.KafkaBrokers) == 0 {
		log.Error("missing required env KAFKA_BROKERS")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("indexer_failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	client, err := es.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword, log)
	if err != nil {
		return err
	}

	index := es.NewIndex(client, cfg.ESIndex)
	if err := index.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure index %s: %w", index.Name(), err)
	}

	consumer := events.NewConsumer(cfg.KafkaBrokers, events.TopicProducts, cfg.ServiceName+"-indexer", log)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Error("kafka_close_failed", "error", err)
		}
	}()

	log.Info("indexer_started", "topic", events.TopicProducts, "index", index.Name())
	return consumer.Run(logging.IntoContext(ctx, log), index.HandleEvent)
}
