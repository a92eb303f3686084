// Package catalog fabricates video listings, detail records and search
// results, and maintains each client's persisted history, watch-later and
// liked lists.
package catalog

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tubeclone/internal/models"
	"tubeclone/internal/observability"
	"tubeclone/internal/storage"
	"tubeclone/internal/task"

	"github.com/brianvoe/gofakeit/v6"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultDelay is the simulated latency of every catalog fetch.
	DefaultDelay = 500 * time.Millisecond
	// FeedSize is the size of the default and unrecognized-category batch.
	FeedSize = 24

	minBatch   = 8
	maxBatch   = 16
	minViews   = 100
	maxViews   = 10_000_000
	liveChance = 0.15

	genericPrefix = "video"
)

// Category identifiers with dedicated generators.
const (
	CategoryAll        = "all"
	CategoryLive       = "live"
	CategoryHistory    = "history"
	CategoryWatchLater = "watch-later"
	CategoryLiked      = "liked-videos"
	CategoryYourVideos = "your-videos"
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed fixes the random source. Zero picks a random seed.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.seed = seed }
}

// WithDelay overrides the simulated latency.
func WithDelay(d time.Duration) Option {
	return func(s *Simulator) { s.delay = d }
}

// WithClock overrides the time source used for upload dates.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithPools replaces the embedded title pools.
func WithPools(p *Pools) Option {
	return func(s *Simulator) { s.pools = p }
}

// Simulator generates synthetic records. It is safe for concurrent use.
type Simulator struct {
	pools *Pools
	delay time.Duration
	now   func() time.Time
	seed  int64

	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New returns a Simulator using the embedded pools unless overridden.
func New(opts ...Option) *Simulator {
	s := &Simulator{delay: DefaultDelay, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.pools == nil {
		s.pools = DefaultPools()
	}
	s.faker = gofakeit.New(s.seed)
	return s
}

// Pools exposes the material records are drawn from.
func (s *Simulator) Pools() *Pools { return s.pools }

// Categories returns the explore-page categories.
func (s *Simulator) Categories() []models.Category {
	out := make([]models.Category, len(s.pools.Categories))
	copy(out, s.pools.Categories)
	return out
}

// ListByCategory returns the batch for categoryID after the simulated delay.
// The list categories read kv; every other category is generated.
func (s *Simulator) ListByCategory(ctx context.Context, kv storage.KV, categoryID string) ([]models.Video, error) {
	categoryID = strings.ToLower(strings.TrimSpace(categoryID))
	if categoryID == "" {
		categoryID = CategoryAll
	}

	ctx, span := observability.StartSpan(ctx, "catalog", "list_by_category", attribute.String("category", categoryID))
	videos, err := task.Do(ctx, s.delay, func(ctx context.Context) ([]models.Video, error) {
		switch categoryID {
		case CategoryHistory, CategoryWatchLater, CategoryLiked:
			entries, err := ReadList(ctx, kv, categoryID)
			if err != nil {
				return nil, err
			}
			return videosOf(entries), nil
		case CategoryYourVideos:
			return s.yourVideos(ctx, kv)
		case CategoryAll:
			return s.Batch("", FeedSize), nil
		case CategoryLive:
			return s.liveBatch(), nil
		}
		if s.known(categoryID) {
			return s.Batch(categoryID, s.batchSize()), nil
		}
		return s.Batch("", FeedSize), nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	observability.CatalogBatches.WithLabelValues(s.metricLabel(categoryID)).Inc()
	observability.CatalogBatchSize.Observe(float64(len(videos)))
	return videos, nil
}

// GetByID reconstructs a record for id. Only the id is stable across calls.
func (s *Simulator) GetByID(ctx context.Context, id string) (models.Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Video{}, models.NewNotFoundError("Video", id)
	}

	ctx, span := observability.StartSpan(ctx, "catalog", "get_by_id", attribute.String("video.id", id))
	v, err := task.Do(ctx, s.delay, func(context.Context) (models.Video, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		titles := s.pools.Titles(s.pools.ThemeOf(id))
		return s.fill(id, s.pick(titles)), nil
	})
	observability.EndSpan(span, err)
	return v, err
}

// Search matches query case-insensitively against the title and channel
// name of a pool holding every title once. A blank query returns an empty
// batch immediately without generating anything.
func (s *Simulator) Search(ctx context.Context, query string) ([]models.Video, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []models.Video{}, nil
	}

	ctx, span := observability.StartSpan(ctx, "catalog", "search")
	results, err := task.Do(ctx, s.delay, func(context.Context) ([]models.Video, error) {
		matches := []models.Video{}
		for _, v := range s.searchPool() {
			if strings.Contains(strings.ToLower(v.Title), needle) ||
				strings.Contains(strings.ToLower(v.ChannelName), needle) {
				matches = append(matches, v)
			}
		}
		return matches, nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	observability.CatalogBatches.WithLabelValues("search").Inc()
	observability.CatalogBatchSize.Observe(float64(len(results)))
	return results, nil
}

// Batch generates n records titled from theme's pool. Themes without a pool
// use the generic titles and generic ids.
func (s *Simulator) Batch(theme string, n int) []models.Video {
	prefix := genericPrefix
	if _, ok := s.pools.Themes[theme]; ok {
		prefix = theme
	}
	titles := s.pools.Titles(theme)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Video, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.record(prefix, i, s.pick(titles)))
	}
	return out
}

// Engagement draws the like and dislike counters shown on a watch page.
func (s *Simulator) Engagement() (likes, dislikes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faker.Number(0, 99_999), s.faker.Number(0, 9_999)
}

func (s *Simulator) liveBatch() []models.Video {
	batch := s.Batch("", s.batchSize())
	for i := range batch {
		batch[i].IsLive = true
		batch[i].Duration = ""
	}
	return batch
}

func (s *Simulator) yourVideos(ctx context.Context, kv storage.KV) ([]models.Video, error) {
	var ident models.Identity
	found, err := kv.GetJSON(ctx, storage.KeyIdentity, &ident)
	if err != nil && !found {
		return nil, err
	}
	batch := s.Batch("", s.batchSize())
	if err != nil || ident.Username == "" {
		return batch, nil
	}
	for i := range batch {
		batch[i].ChannelName = ident.Username
		if ident.AvatarURL != nil && *ident.AvatarURL != "" {
			batch[i].ChannelAvatar = *ident.AvatarURL
		}
	}
	return batch, nil
}

func (s *Simulator) searchPool() []models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pool []models.Video
	for _, theme := range s.pools.themeNames() {
		for i, title := range s.pools.Themes[theme] {
			pool = append(pool, s.record(theme, i, title))
		}
	}
	for i, title := range s.pools.Generic {
		pool = append(pool, s.record(genericPrefix, i, title))
	}
	return pool
}

func (s *Simulator) batchSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faker.Number(minBatch, maxBatch)
}

// known reports whether id names a themed pool or an explore category.
func (s *Simulator) known(id string) bool {
	if _, ok := s.pools.Themes[id]; ok {
		return true
	}
	for _, c := range s.pools.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Simulator) metricLabel(id string) string {
	switch id {
	case CategoryHistory, CategoryWatchLater, CategoryLiked, CategoryYourVideos, CategoryAll:
		return id
	}
	if s.known(id) {
		return id
	}
	return "other"
}

// record generates one record. Callers hold s.mu.
func (s *Simulator) record(prefix string, n int, title string) models.Video {
	id := fmt.Sprintf("%s-%d-%s", prefix, n, strconv.FormatInt(int64(s.faker.Number(0, math.MaxInt32)), 36))
	return s.fill(id, title)
}

// fill draws every field but id and title. Callers hold s.mu.
func (s *Simulator) fill(id, title string) models.Video {
	now := s.now()
	ch := s.pools.Channels[s.faker.Number(0, len(s.pools.Channels)-1)]
	v := models.Video{
		ID:            id,
		Title:         title,
		Thumbnail:     ThumbnailURL(id),
		ChannelName:   ch.Name,
		ChannelAvatar: ch.Avatar,
		Views:         int64(s.faker.Number(minViews, maxViews)),
		UploadedAt:    s.faker.DateRange(now.AddDate(-2, 0, 0), now),
	}
	if s.faker.Float64() < liveChance {
		v.IsLive = true
	} else {
		v.Duration = s.pick(s.pools.Durations)
	}
	return v
}

// pick returns a uniformly random element. Callers hold s.mu.
func (s *Simulator) pick(items []string) string {
	return items[s.faker.Number(0, len(items)-1)]
}

// ThumbnailURL is the placeholder image for a record id.
func ThumbnailURL(id string) string {
	return "https://picsum.photos/seed/" + url.PathEscape(id) + "/640/360"
}

func videosOf(entries []models.ListEntry) []models.Video {
	out := make([]models.Video, len(entries))
	for i, e := range entries {
		out[i] = e.Video
	}
	return out
}
