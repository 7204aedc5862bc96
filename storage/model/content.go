package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewsArticle is an entry of the public news feed
type NewsArticle struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Title        string      `gorm:"not null" json:"title"`
	Excerpt      string      `gorm:"type:text" json:"excerpt"`
	Content      string      `gorm:"type:text" json:"content,omitempty"`
	ImageURL     string      `json:"imageUrl"`
	Date         string      `gorm:"index" json:"date"`
	ExternalLink string      `json:"externalLink,omitempty"`
	SortOrder    int         `gorm:"index" json:"order"`
	Images       []NewsImage `gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE" json:"images"`
}

// NewsImage is an additional gallery image of a NewsArticle
type NewsImage struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	NewsID string `gorm:"size:36;index" json:"newsId"`
	URL    string `json:"url"`
}

// NewsInput is the writable part of a NewsArticle. Images replaces the
// gallery when non-nil.
type NewsInput struct {
	Title        string   `json:"title"`
	Excerpt      string   `json:"excerpt"`
	Content      string   `json:"content"`
	ImageURL     string   `json:"imageUrl"`
	Date         string   `json:"date"`
	ExternalLink string   `json:"externalLink"`
	Images       []string `json:"images"`
}

// NavLink is one top-level entry of the navigation menu. Data holds the full
// entry including nested submenus as JSON.
type NavLink struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Name      string         `json:"name"`
	Href      string         `json:"href"`
	SortOrder int            `gorm:"index" json:"order"`
	Data      datatypes.JSON `json:"-"`
}

// NavLinkInput is the tree shape of a menu entry as exchanged with clients
type NavLinkInput struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Href    string         `json:"href"`
	Submenu []NavLinkInput `json:"submenu,omitempty"`
}

// GridItem is one service icon in the services grid
type GridItem struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	IconName    string `json:"iconName"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href"`
	SortOrder   int    `gorm:"index" json:"order"`
}

// Slide is one hero slider image
type Slide struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ImageURL  string    `gorm:"not null" json:"imageUrl"`
	SortOrder int       `gorm:"index" json:"order"`
	IsActive  bool      `json:"isActive"`
}

// Resource is a downloadable document
type Resource struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Title       string    `gorm:"not null" json:"title"`
	Category    string    `gorm:"index" json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	FileURL     string    `json:"fileUrl"`
	FileType    string    `json:"fileType"`
}

// ResourceInput is the writable part of a Resource
type ResourceInput struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	FileURL     string `json:"fileUrl"`
	FileType    string `json:"fileType"`
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// BeforeCreate assigns an id
func (n *NewsArticle) BeforeCreate(*gorm.DB) error { newID(&n.ID); return nil }

// BeforeCreate assigns an id
func (n *NewsImage) BeforeCreate(*gorm.DB) error { newID(&n.ID); return nil }

// BeforeCreate assigns an id
func (n *NavLink) BeforeCreate(*gorm.DB) error { newID(&n.ID); return nil }

// BeforeCreate assigns an id
func (g *GridItem) BeforeCreate(*gorm.DB) error { newID(&g.ID); return nil }

// BeforeCreate assigns an id
func (s *Slide) BeforeCreate(*gorm.DB) error { newID(&s.ID); return nil }

// BeforeCreate assigns an id
func (r *Resource) BeforeCreate(*gorm.DB) error { newID(&r.ID); return nil }

// NewsStore is the abstraction used by the news handlers.
type NewsStore interface {
	List() ([]NewsArticle, error)
	Get(id string) (*NewsArticle, error)
	Create(in NewsInput) (*NewsArticle, error)
	Update(id string, in NewsInput) (*NewsArticle, error)
	Delete(id string) (*NewsArticle, error)
	Reorder(ids []string) error
}

// NavLinksStore stores the navigation menu
type NavLinksStore interface {
	List() ([]NavLinkInput, error)
	Replace(links []NavLinkInput) error
}

// GridItemsStore stores the services grid
type GridItemsStore interface {
	List() ([]GridItem, error)
	Replace(items []GridItem) error
}

// SlidesStore stores hero slides
type SlidesStore interface {
	List(activeOnly bool) ([]Slide, error)
	Create(imageURL string, order int) (*Slide, error)
	Update(id string, order *int, isActive *bool) (*Slide, error)
	Delete(id string) (*Slide, error)
}

// ResourcesStore stores downloadable resources
type ResourcesStore interface {
	List(category string) ([]Resource, error)
	Get(id string) (*Resource, error)
	Create(in ResourceInput) (*Resource, error)
	Update(id string, in ResourceInput) (*Resource, error)
	Delete(id string) (*Resource, error)
}
