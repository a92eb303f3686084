// Command seed fills a demo client with an identity and generated lists.
package main

import (
	"context"
	"flag"
	"log"

	"tubeclone/internal/config"
	"tubeclone/internal/middleware"
	"tubeclone/internal/seed"
	"tubeclone/internal/server"
)

func main() {
	defaults := seed.DefaultOptions()
	clientID := flag.String("client", "", "Existing client id to seed (empty registers a new one)")
	history := flag.Int("history", defaults.History, "Number of history entries")
	watchLater := flag.Int("watch-later", defaults.WatchLater, "Number of watch-later entries")
	liked := flag.Int("liked", defaults.Liked, "Number of liked entries")
	randSeed := flag.Int64("seed", 0, "Generator seed (0 = random)")
	clean := flag.Bool("clean", false, "Clear the client's keys before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StorageDriver == config.StorageMemory {
		log.Fatalf("STORAGE_DRIVER=memory does not outlive this process; use redis, postgres or sqlite")
	}

	ctx := context.Background()
	backends, err := server.OpenBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect storage: %v", err)
	}
	defer func() {
		if backends.Redis != nil {
			_ = backends.Redis.Close()
		}
		if backends.DB != nil {
			if sqlDB, err := backends.DB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}()

	s := seed.NewSeeder(backends.Store)
	if *clean && *clientID != "" {
		if err := s.ClearClient(ctx, *clientID); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.SeedClient(ctx, seed.Options{
		ClientID:   *clientID,
		History:    *history,
		WatchLater: *watchLater,
		Liked:      *liked,
		Seed:       *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	token, err := middleware.NewClientTokens(cfg.ClientTokenSecret, cfg.ClientTokenTTL).Issue(res.ClientID)
	if err != nil {
		log.Fatalf("Failed to issue client token: %v", err)
	}

	log.Printf("Seeded client %s as %q (%d history, %d watch later, %d liked)",
		res.ClientID, res.Identity.Username, res.History, res.WatchLater, res.Liked)
	log.Printf("Client token: %s", token)
}
