// Package seed populates demo clients with an identity and generated
// history, watch-later and liked lists. Intended for development only.
package seed

import (
	"context"
	"fmt"
	"sort"

	"tubeclone/internal/catalog"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/session"
	"tubeclone/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Options controls how much data a seeded client receives.
type Options struct {
	// ClientID reuses an existing client; empty mints a new one.
	ClientID   string
	History    int
	WatchLater int
	Liked      int
	// Seed fixes generation; zero is random.
	Seed int64
}

// DefaultOptions fills a client's lists without hitting their caps.
func DefaultOptions() Options {
	return Options{History: 30, WatchLater: 12, Liked: 20}
}

// Result summarises a seeded client.
type Result struct {
	ClientID   string
	Identity   models.Identity
	History    int
	WatchLater int
	Liked      int
}

// Seeder writes demo data through the same session and library code the
// server uses.
type Seeder struct {
	store storage.Store
}

// NewSeeder binds a seeder to store.
func NewSeeder(store storage.Store) *Seeder {
	return &Seeder{store: store}
}

// SeedClient signs up a fake identity (unless one is persisted) and fills
// the client's lists.
func (s *Seeder) SeedClient(ctx context.Context, opts Options) (*Result, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	faker := gofakeit.New(opts.Seed)
	sim := catalog.New(catalog.WithSeed(opts.Seed), catalog.WithDelay(0))

	kv := storage.Namespace(s.store, clientID)
	sess, err := session.Open(ctx, kv, session.WithDelay(0))
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	ident, ok := sess.Identity()
	if !ok {
		ident, err = sess.SignUp(ctx, faker.Email(), faker.Username(), faker.Password(true, true, true, false, false, 12))
		if err != nil {
			return nil, fmt.Errorf("sign up: %w", err)
		}
	}

	lib := catalog.NewLibrary(kv, sess)
	themes := themeNames(sim)
	next := func() models.Video {
		return sim.Batch(faker.RandomString(themes), 1)[0]
	}

	res := &Result{ClientID: clientID, Identity: ident}
	for i := 0; i < opts.History; i++ {
		if _, err := lib.RecordHistory(ctx, next()); err != nil {
			return nil, err
		}
		res.History++
	}
	for i := 0; i < opts.WatchLater; i++ {
		if err := lib.SetSaved(ctx, next(), true); err != nil {
			return nil, err
		}
		res.WatchLater++
	}
	for i := 0; i < opts.Liked; i++ {
		if err := lib.SetLiked(ctx, next(), true); err != nil {
			return nil, err
		}
		res.Liked++
	}

	middleware.Logger.InfoContext(ctx, "seeded client",
		"client_id", clientID, "username", ident.Username,
		"history", res.History, "watch_later", res.WatchLater, "liked", res.Liked)
	return res, nil
}

// ClearClient removes every key persisted for clientID.
func (s *Seeder) ClearClient(ctx context.Context, clientID string) error {
	for _, key := range []string{storage.KeyIdentity, storage.KeyHistory, storage.KeyWatchLater, storage.KeyLiked} {
		if err := s.store.Delete(ctx, clientID, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

func themeNames(sim *catalog.Simulator) []string {
	names := []string{""}
	for theme := range sim.Pools().Themes {
		names = append(names, theme)
	}
	sort.Strings(names)
	return names
}
