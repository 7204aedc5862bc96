package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// KeyValueStorage implements model.KeyValueStore using GORM
type KeyValueStorage struct {
	db *gorm.DB
}

// kvUpsert revives soft deleted rows and replaces their value
var kvUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "deleted_at"}),
}

// where uses map conditions so gorm quotes the columns; key is reserved in MySQL
func (s *KeyValueStorage) where(scope, key string) *gorm.DB {
	return s.db.Where(map[string]any{"scope": scope, "key": key})
}

// Get returns the raw JSON stored at (scope, key). The column is read as
// bytes since drivers hand back scalar JSON (e.g. numbers) as native values.
func (s *KeyValueStorage) Get(scope, key string) (datatypes.JSON, error) {
	var raw []byte
	err := s.where(scope, key).Model(&model.KeyValue{}).Select("value").Row().Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "kv: get %s/%s failed", scope, key)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// GetAs decodes the value at (scope, key) into out, a pointer
func (s *KeyValueStorage) GetAs(scope, key string, out any) (bool, error) {
	raw, err := s.Get(scope, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "kv: %s/%s does not decode", scope, key)
	}
	return true, nil
}

// Set stores value at (scope, key), replacing what was there
func (s *KeyValueStorage) Set(scope, key string, value datatypes.JSON) error {
	row := model.KeyValue{
		Scope: scope,
		Key:   key,
		Value: value,
	}
	if err := s.db.Clauses(kvUpsert).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "kv: set %s/%s failed", scope, key)
	}
	return nil
}

// SetAny stores the JSON encoding of v
func (s *KeyValueStorage) SetAny(scope, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return s.Set(scope, key, data)
}

// Delete soft deletes (scope, key)
func (s *KeyValueStorage) Delete(scope, key string) error {
	if err := s.where(scope, key).Delete(&model.KeyValue{}).Error; err != nil {
		return errors.Wrapf(err, "kv: delete %s/%s failed", scope, key)
	}
	return nil
}

// Scope returns all live entries of a scope
func (s *KeyValueStorage) Scope(scope string) (map[string]datatypes.JSON, error) {
	rows, err := s.db.Model(&model.KeyValue{}).
		Select("key", "value").
		Where(map[string]any{"scope": scope}).
		Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "kv: scope %s failed", scope)
	}
	defer rows.Close()
	out := make(map[string]datatypes.JSON)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err = rows.Scan(&key, &raw); err != nil {
			return nil, errors.Wrapf(err, "kv: scope %s failed", scope)
		}
		out[key] = raw
	}
	return out, errors.Wrapf(rows.Err(), "kv: scope %s failed", scope)
}
