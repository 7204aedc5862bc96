package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scopes and keys of the site settings
const (
	KeyValueScopeGlobal   = ""
	KeyValueScopeSettings = "settings"

	SettingHospitalLogo = "hospitalLogo"
	SettingAboutImage   = "aboutImage"
)

// KeyValue is one JSON value addressed by (Scope, Key). Site settings such as
// the hospital logo live here instead of in dedicated tables.
type KeyValue struct {
	CreatedAt int            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Scope string         `gorm:"primaryKey;size:64" json:"scope"`
	Key   string         `gorm:"primaryKey;size:128" json:"key"`
	Value datatypes.JSON `json:"value"`
}

// KeyValueStore reads and writes scoped JSON values
type KeyValueStore interface {
	// Get returns nil, nil when nothing is stored
	Get(scope, key string) (datatypes.JSON, error)
	// GetAs decodes the value into out and reports whether it was present
	GetAs(scope, key string, out any) (bool, error)
	SetAny(scope, key string, v any) error
	// Delete succeeds for missing entries
	Delete(scope, key string) error
	// Scope returns every value of scope by key
	Scope(scope string) (map[string]datatypes.JSON, error)
}
