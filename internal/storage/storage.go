// Package storage persists per-client key/value strings, the server-side
// equivalent of a browser's origin-scoped local storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys persisted for every client.
const (
	KeyIdentity   = "identity"
	KeyHistory    = "videoHistory"
	KeyWatchLater = "watchLater"
	KeyLiked      = "likedVideos"
)

// ErrConflict is returned when an optimistic update keeps losing races.
var ErrConflict = errors.New("storage: concurrent update conflict")

// UpdateFunc receives the current value (ok=false when absent) and returns
// the value to store. Returning a nil slice deletes the key. Returning an
// error aborts the update without writing.
type UpdateFunc func(current []byte, ok bool) ([]byte, error)

// Store is a namespaced key/value backend.
//
// Update is the read-modify-write primitive: no other writer to the same
// namespace/key interleaves between the read handed to fn and the write of
// its result.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Update(ctx context.Context, namespace, key string, fn UpdateFunc) error
	Ping(ctx context.Context) error
}

// KV is a Store bound to one client namespace.
type KV struct {
	store     Store
	namespace string
}

// Namespace binds store to a client namespace.
func Namespace(store Store, namespace string) KV {
	return KV{store: store, namespace: namespace}
}

// Name returns the bound namespace.
func (kv KV) Name() string { return kv.namespace }

func (kv KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return kv.store.Get(ctx, kv.namespace, key)
}

func (kv KV) Set(ctx context.Context, key string, value []byte) error {
	return kv.store.Set(ctx, kv.namespace, key, value)
}

func (kv KV) Delete(ctx context.Context, key string) error {
	return kv.store.Delete(ctx, kv.namespace, key)
}

func (kv KV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return kv.store.Update(ctx, kv.namespace, key, fn)
}

// GetJSON decodes the value at key into v. It reports false when the key is absent.
func (kv KV) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func (kv KV) SetJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
