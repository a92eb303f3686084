package models

import "time"

// KVEntry is one persisted value in a client namespace.
type KVEntry struct {
	Namespace string    `gorm:"primaryKey;size:64" json:"namespace"`
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name used by every SQL dialect.
func (KVEntry) TableName() string {
	return "kv_entries"
}
