package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the kind of action an AuditLog entry records
type AuditAction string

// AuditEntity is the kind of object an AuditLog entry refers to
type AuditEntity string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionLogin  AuditAction = "LOGIN"
	AuditActionLogout AuditAction = "LOGOUT"
	AuditActionReset  AuditAction = "RESET"

	AuditEntityUser     AuditEntity = "USER"
	AuditEntityNews     AuditEntity = "NEWS"
	AuditEntityMenu     AuditEntity = "MENU"
	AuditEntityService  AuditEntity = "SERVICE"
	AuditEntityImage    AuditEntity = "IMAGE"
	AuditEntityResource AuditEntity = "RESOURCE"
	AuditEntitySystem   AuditEntity = "SYSTEM"
)

// AuditLog is an immutable record of a security or content relevant action.
type AuditLog struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Action      AuditAction `gorm:"size:16;index" json:"action"`
	Entity      AuditEntity `gorm:"size:16;index" json:"entity"`
	Details     string      `gorm:"type:text" json:"details"`
	PerformedBy string      `gorm:"size:64;index" json:"performedBy"`
	Timestamp   time.Time   `gorm:"index" json:"timestamp"`
}

// BeforeCreate assigns id and timestamp
func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}

// AuditQuery filters AuditStore.List
type AuditQuery struct {
	Action AuditAction
	Entity AuditEntity
	Limit  int
	Offset int
}

// AuditStore is append-only: there is no way to update or delete entries.
type AuditStore interface {
	Append(entry *AuditLog) error
	List(query AuditQuery) ([]AuditLog, int64, error)
}
