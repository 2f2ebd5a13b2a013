// Package localstore is the local key-value persistence backing the
// offline/guest fallback path. Values are small JSON blobs addressed by
// the deterministic keys in groupid (`contacts-<groupId>`,
// `userProfile-<uid>`), stored in an embedded SQLite database so a
// restart keeps guest data.
//
// All operations are synchronous; callers treat them like in-process
// storage and never time them out.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// entry is one key-value row.
type entry struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "kv_entries" }

// Store is a durable string key-value store.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (or creates) the local store at path. Use the special
// ":memory:" path for throwaway stores in tests.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetItem returns the value for key and whether it was present.
func (s *Store) GetItem(key string) (string, bool, error) {
	var e entry
	err := s.db.First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *Store) SetItem(key, value string) error {
	e := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&e).Error
}

// RemoveItem deletes key. Missing keys are not an error.
func (s *Store) RemoveItem(key string) error {
	return s.db.Delete(&entry{}, "key = ?", key).Error
}

// LoadContacts returns the locally persisted contact list for a group.
// A missing key yields an empty list.
func (s *Store) LoadContacts(groupID string) ([]models.Contact, error) {
	raw, ok, err := s.GetItem(groupid.LocalContactsKey(groupID))
	if err != nil || !ok {
		return nil, err
	}
	var contacts []models.Contact
	if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
		return nil, fmt.Errorf("decode local contacts for %s: %w", groupID, err)
	}
	return contacts, nil
}

// SaveContacts persists the full contact list for a group.
func (s *Store) SaveContacts(groupID string, contacts []models.Contact) error {
	raw, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("encode local contacts for %s: %w", groupID, err)
	}
	return s.SetItem(groupid.LocalContactsKey(groupID), string(raw))
}

// LoadProfile returns the locally persisted profile for uid, if any.
func (s *Store) LoadProfile(uid string) (models.Profile, bool, error) {
	raw, ok, err := s.GetItem(groupid.LocalProfileKey(uid))
	if err != nil || !ok {
		return models.Profile{}, false, err
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.Profile{}, false, fmt.Errorf("decode local profile for %s: %w", uid, err)
	}
	return p, true, nil
}

// SaveProfile persists a profile locally.
func (s *Store) SaveProfile(p models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode local profile for %s: %w", p.UID, err)
	}
	return s.SetItem(groupid.LocalProfileKey(p.UID), string(raw))
}
