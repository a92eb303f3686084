package storage

import (
	"context"
	"errors"
	"time"

	"tubeclone/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps values in the kv_entries table (postgres or sqlite).
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps a migrated gorm connection.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).
		Where(&models.KVEntry{Namespace: namespace, Key: key}).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

func (s *SQLStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	return upsert(s.db.WithContext(ctx), namespace, key, value)
}

func (s *SQLStore) Delete(ctx context.Context, namespace, key string) error {
	return s.db.WithContext(ctx).
		Where(&models.KVEntry{Namespace: namespace, Key: key}).
		Delete(&models.KVEntry{}).Error
}

// Update locks the row with FOR UPDATE inside a transaction. An absent row
// is first inserted as a placeholder, so concurrent first writes queue on it
// instead of both reading "absent". The placeholder never outlives the
// transaction: fn's result replaces it, and an aborted fn rolls it back.
// sqlite ignores the locking clause and serializes writers itself.
func (s *SQLStore) Update(ctx context.Context, namespace, key string, fn UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.KVEntry{
			Namespace: namespace,
			Key:       key,
			UpdatedAt: time.Now().UTC(),
		})
		if seed.Error != nil {
			return seed.Error
		}
		ok := seed.RowsAffected == 0

		var entry models.KVEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.KVEntry{Namespace: namespace, Key: key}).
			Take(&entry).Error
		if err != nil {
			return err
		}

		var current []byte
		if ok {
			current = []byte(entry.Value)
		}
		next, err := fn(current, ok)
		if err != nil {
			return err
		}
		if next == nil {
			return tx.Where(&models.KVEntry{Namespace: namespace, Key: key}).
				Delete(&models.KVEntry{}).Error
		}
		return upsert(tx, namespace, key, next)
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func upsert(db *gorm.DB, namespace, key string, value []byte) error {
	entry := models.KVEntry{
		Namespace: namespace,
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}
