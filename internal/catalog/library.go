package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/observability"
	"tubeclone/internal/storage"
)

// List capacities.
const (
	HistoryLimit    = 50
	WatchLaterLimit = 200
	LikedLimit      = 200
)

type listSpec struct {
	key   string
	limit int
}

var lists = map[string]listSpec{
	CategoryHistory:    {key: storage.KeyHistory, limit: HistoryLimit},
	CategoryWatchLater: {key: storage.KeyWatchLater, limit: WatchLaterLimit},
	CategoryLiked:      {key: storage.KeyLiked, limit: LikedLimit},
}

// IsList reports whether name is one of the persisted lists.
func IsList(name string) bool {
	_, ok := lists[name]
	return ok
}

// ReadList returns the persisted list most-recent-first. A malformed value
// reads as empty.
func ReadList(ctx context.Context, kv storage.KV, name string) ([]models.ListEntry, error) {
	spec, ok := lists[name]
	if !ok {
		return nil, models.NewNotFoundError("List", name)
	}
	raw, found, err := kv.Get(ctx, spec.key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.ListEntry{}, nil
	}
	return decodeList(ctx, spec.key, raw), nil
}

func decodeList(ctx context.Context, key string, raw []byte) []models.ListEntry {
	var entries []models.ListEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		middleware.Logger.WarnContext(ctx, "discarding malformed persisted list", "key", key, "error", err)
		return []models.ListEntry{}
	}
	if entries == nil {
		entries = []models.ListEntry{}
	}
	return entries
}

// Gate refuses personal actions while the client is signed out.
type Gate interface {
	RequireAuthenticated(ctx context.Context, action string) (models.Identity, error)
}

// Library mutates one client's persisted lists.
type Library struct {
	kv   storage.KV
	gate Gate
	now  func() time.Time
}

// NewLibrary binds the lists stored in kv. gate guards every mutation except
// RecordHistory.
func NewLibrary(kv storage.KV, gate Gate) *Library {
	return &Library{kv: kv, gate: gate, now: time.Now}
}

// WithClock returns a copy of l stamping entries with now.
func (l *Library) WithClock(now func() time.Time) *Library {
	cp := *l
	cp.now = now
	return &cp
}

// RecordHistory inserts v at the front of the history, or moves it there if
// already present, stamped with the current time. The history keeps the
// HistoryLimit most recent entries.
func (l *Library) RecordHistory(ctx context.Context, v models.Video) ([]models.ListEntry, error) {
	var out []models.ListEntry
	err := l.mutate(ctx, CategoryHistory, func(entries []models.ListEntry, limit int) []models.ListEntry {
		out = insertFront(entries, models.ListEntry{Video: v, Timestamp: l.now()}, limit)
		return out
	})
	if err != nil {
		return nil, err
	}
	observability.ListMutations.WithLabelValues(CategoryHistory, "record").Inc()
	return out, nil
}

// ToggleWatchLater saves v, or unsaves it if already saved. It reports the new state.
func (l *Library) ToggleWatchLater(ctx context.Context, v models.Video) (bool, error) {
	return l.toggle(ctx, CategoryWatchLater, "save videos", v)
}

// ToggleLiked likes v, or removes the like. It reports the new state.
func (l *Library) ToggleLiked(ctx context.Context, v models.Video) (bool, error) {
	return l.toggle(ctx, CategoryLiked, "like videos", v)
}

// SetLiked forces the liked state of v.
func (l *Library) SetLiked(ctx context.Context, v models.Video, liked bool) error {
	return l.set(ctx, CategoryLiked, "like videos", v, liked)
}

// SetSaved forces the watch-later state of v.
func (l *Library) SetSaved(ctx context.Context, v models.Video, saved bool) error {
	return l.set(ctx, CategoryWatchLater, "save videos", v, saved)
}

// Contains reports whether id is in the named list.
func (l *Library) Contains(ctx context.Context, list, id string) (bool, error) {
	entries, err := ReadList(ctx, l.kv, list)
	if err != nil {
		return false, err
	}
	return indexOf(entries, id) >= 0, nil
}

// Entries returns the named list most-recent-first.
func (l *Library) Entries(ctx context.Context, list string) ([]models.ListEntry, error) {
	return ReadList(ctx, l.kv, list)
}

func (l *Library) toggle(ctx context.Context, list, action string, v models.Video) (bool, error) {
	if _, err := l.gate.RequireAuthenticated(ctx, action); err != nil {
		return false, err
	}
	var present bool
	err := l.mutate(ctx, list, func(entries []models.ListEntry, limit int) []models.ListEntry {
		if i := indexOf(entries, v.ID); i >= 0 {
			present = false
			return append(entries[:i:i], entries[i+1:]...)
		}
		present = true
		return insertFront(entries, models.ListEntry{Video: v, Timestamp: l.now()}, limit)
	})
	if err != nil {
		return false, err
	}
	observability.ListMutations.WithLabelValues(list, actionLabel(present)).Inc()
	return present, nil
}

func (l *Library) set(ctx context.Context, list, action string, v models.Video, want bool) error {
	if _, err := l.gate.RequireAuthenticated(ctx, action); err != nil {
		return err
	}
	err := l.mutate(ctx, list, func(entries []models.ListEntry, limit int) []models.ListEntry {
		i := indexOf(entries, v.ID)
		switch {
		case want && i < 0:
			return insertFront(entries, models.ListEntry{Video: v, Timestamp: l.now()}, limit)
		case !want && i >= 0:
			return append(entries[:i:i], entries[i+1:]...)
		}
		return entries
	})
	if err != nil {
		return err
	}
	observability.ListMutations.WithLabelValues(list, actionLabel(want)).Inc()
	return nil
}

// mutate runs fn as one read-modify-write of the list. fn must not block.
func (l *Library) mutate(ctx context.Context, list string, fn func([]models.ListEntry, int) []models.ListEntry) error {
	spec := lists[list]
	err := l.kv.Update(ctx, spec.key, func(current []byte, ok bool) ([]byte, error) {
		entries := []models.ListEntry{}
		if ok {
			entries = decodeList(ctx, spec.key, current)
		}
		return json.Marshal(fn(entries, spec.limit))
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", list, err)
	}
	return nil
}

// insertFront places e first, dropping any older entry with the same id and
// trimming to limit.
func insertFront(entries []models.ListEntry, e models.ListEntry, limit int) []models.ListEntry {
	out := make([]models.ListEntry, 0, min(len(entries)+1, limit))
	out = append(out, e)
	for _, existing := range entries {
		if len(out) == limit {
			break
		}
		if existing.ID != e.ID {
			out = append(out, existing)
		}
	}
	return out
}

func indexOf(entries []models.ListEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func actionLabel(added bool) string {
	if added {
		return "add"
	}
	return "remove"
}
