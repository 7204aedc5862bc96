// Package audit writes audit log entries. Recording never fails the calling
// operation; write errors are logged.
package audit

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/internal/geoip"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// Recorder appends entries to a model.AuditStore
type Recorder struct {
	store   model.AuditStore
	locator *geoip.Locator
}

// NewRecorder creates a Recorder; locator may be nil
func NewRecorder(store model.AuditStore, locator *geoip.Locator) *Recorder {
	return &Recorder{
		store:   store,
		locator: locator,
	}
}

// Record appends an entry
func (r *Recorder) Record(action model.AuditAction, entity model.AuditEntity, details, performedBy string) {
	if r == nil || r.store == nil {
		return
	}
	entry := &model.AuditLog{
		Action:      action,
		Entity:      entity,
		Details:     details,
		PerformedBy: performedBy,
	}
	if err := r.store.Append(entry); err != nil {
		log.WithError(err).WithFields(
			log.Fields{
				"action":       action,
				"entity":       entity,
				"performed_by": performedBy,
			},
		).Error("could not write audit log entry")
	}
}

// Recordf is Record with a formatted details string
func (r *Recorder) Recordf(
	action model.AuditAction, entity model.AuditEntity, performedBy, format string, args ...any,
) {
	r.Record(action, entity, fmt.Sprintf(format, args...), performedBy)
}

// Login records a successful login, enriched with the client country when a
// geoip database is configured
func (r *Recorder) Login(username, ip string) {
	if r == nil {
		return
	}
	details := fmt.Sprintf("User %s logged in", username)
	if country := r.locator.Country(ip); country != "" {
		details = fmt.Sprintf("%s from %s", details, country)
	}
	r.Record(model.AuditActionLogin, model.AuditEntityUser, details, username)
}

// Changes returns the json names of the exported fields that differ between
// before and after, which must be structs (or pointers to structs) of the
// same type
func Changes(before, after any) []string {
	b := structs.New(before)
	a := structs.New(after)
	var changed []string
	for _, f := range b.Fields() {
		if !f.IsExported() {
			continue
		}
		other, ok := a.FieldOk(f.Name())
		if !ok || reflect.DeepEqual(f.Value(), other.Value()) {
			continue
		}
		name, _, _ := strings.Cut(f.Tag("json"), ",")
		if name == "" || name == "-" {
			name = f.Name()
		}
		changed = append(changed, name)
	}
	return changed
}

// Describe appends the changed fields to a details string
func Describe(details string, changed []string) string {
	if len(changed) == 0 {
		return details
	}
	return fmt.Sprintf("%s (%s)", details, strings.Join(changed, ", "))
}
