// Command seed loads demo leads from a YAML file through the same identity
// resolution and ingest path the webhook uses.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"leadflow_backend/internal/gateway"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/dedupe"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

func main() {
	path := flag.String("file", "cmd/seed/leads.example.yaml", "YAML file with leads to seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env).WithComponent("seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*path)
	if err != nil {
		log.Error("failed to open fixtures", "path", *path, "error", err)
		os.Exit(1)
	}
	fixtures, err := loadFixtures(f)
	_ = f.Close()
	if err != nil {
		log.Error("failed to read fixtures", "path", *path, "error", err)
		os.Exit(1)
	}

	backend, err := leads.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open lead store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	hub := realtime.NewHub(cfg.GetRealtimeBuffer(), log)
	defer hub.Close()

	module := leads.NewModule(leads.Deps{
		Store:     backend.Store,
		Gateway:   gateway.NewClient(cfg, log),
		Dedupe:    dedupe.Noop{},
		Publisher: hub,
		Validator:    validator.New(),
		Logger:       log,
		StoreTimeout: cfg.GetStoreTimeout(),
	})

	created, skipped := 0, 0
	for _, fx := range fixtures {
		res, err := module.Resolver().Resolve(ctx, fx.Address, fx.Name)
		if err != nil {
			log.Warn("lead skipped", "address", fx.Address, "error", err)
			skipped++
			continue
		}
		if res.Created {
			created++
		}
		log.Info("lead ready", "leadId", res.Lead.ID, "name", res.Lead.DisplayName, "address", res.Lead.ChannelAddress)

		for _, body := range fx.Messages {
			if _, err := module.Ingester().Ingest(ctx, transport.InboundMessage{
				RawAddress: res.Lead.ChannelAddress,
				Content:    body,
				SenderName: fx.Name,
			}); err != nil {
				log.Warn("message skipped", "leadId", res.Lead.ID, "error", err)
			}
		}
	}

	log.Info("seed complete", "created", created, "existing", len(fixtures)-created-skipped, "skipped", skipped)
}
