package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db     *gorm.DB
	hasher *passwords.Hasher
}

var models = []any{
	&model.User{},
	&model.AuditLog{},
	&model.NewsArticle{},
	&model.NewsImage{},
	&model.NavLink{},
	&model.GridItem{},
	&model.Slide{},
	&model.Resource{},
	&model.KeyValue{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate the schemas
	if err = db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	hasher, err := passwords.NewHasher(config.UsersHash)
	if err != nil {
		return nil, fmt.Errorf("failed to init password hasher: %w", err)
	}

	return &Storage{
		db:     db,
		hasher: hasher,
	}, nil
}

// DB exposes the underlying connection
func (s *Storage) DB() *gorm.DB {
	return s.db
}

// UsersStorage returns a UsersStorage
func (s *Storage) UsersStorage() *UsersStorage {
	return &UsersStorage{db: s.db, hasher: s.hasher}
}

// AuditStorage returns an AuditStorage
func (s *Storage) AuditStorage() *AuditStorage {
	return &AuditStorage{db: s.db}
}

// NewsStorage returns a NewsStorage
func (s *Storage) NewsStorage() *NewsStorage {
	return &NewsStorage{db: s.db}
}

// NavLinksStorage returns a NavLinksStorage
func (s *Storage) NavLinksStorage() *NavLinksStorage {
	return &NavLinksStorage{db: s.db}
}

// GridItemsStorage returns a GridItemsStorage
func (s *Storage) GridItemsStorage() *GridItemsStorage {
	return &GridItemsStorage{db: s.db}
}

// SlidesStorage returns a SlidesStorage
func (s *Storage) SlidesStorage() *SlidesStorage {
	return &SlidesStorage{db: s.db}
}

// ResourcesStorage returns a ResourcesStorage
func (s *Storage) ResourcesStorage() *ResourcesStorage {
	return &ResourcesStorage{db: s.db}
}

// KeyValue provides an accessor for scoped key-value storage.
func (s *Storage) KeyValue() *KeyValueStorage {
	return &KeyValueStorage{db: s.db}
}

// Backends groups all stores of this Storage
func (s *Storage) Backends() model.Backends {
	return model.Backends{
		Users:     s.UsersStorage(),
		Audit:     s.AuditStorage(),
		News:      s.NewsStorage(),
		NavLinks:  s.NavLinksStorage(),
		GridItems: s.GridItemsStorage(),
		Slides:    s.SlidesStorage(),
		Resources: s.ResourcesStorage(),
		KV:        s.KeyValue(),
	}
}

// LoadStorageBackends initializes a storage and returns grouped backends.
func LoadStorageBackends(cfg Config) (model.Backends, error) {
	warehouse, err := NewStorage(cfg)
	if err != nil {
		return model.Backends{}, err
	}
	return warehouse.Backends(), nil
}
