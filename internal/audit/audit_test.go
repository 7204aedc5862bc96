package audit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/storage/model"
)

type memStore struct {
	entries []model.AuditLog
	err     error
}

func (m *memStore) Append(e *model.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memStore) List(model.AuditQuery) ([]model.AuditLog, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

func TestRecord(t *testing.T) {
	s := &memStore{}
	r := NewRecorder(s, nil)
	r.Recordf(model.AuditActionCreate, model.AuditEntityNews, "admin", "Created news: %s", "Open day")
	r.Login("admin", "127.0.0.1")

	require.Len(t, s.entries, 2)
	assert.Equal(t, model.AuditActionCreate, s.entries[0].Action)
	assert.Equal(t, model.AuditEntityNews, s.entries[0].Entity)
	assert.Equal(t, "Created news: Open day", s.entries[0].Details)
	assert.Equal(t, "admin", s.entries[0].PerformedBy)
	assert.Equal(t, model.AuditActionLogin, s.entries[1].Action)
	assert.Equal(t, "User admin logged in", s.entries[1].Details)
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	s := &memStore{err: errors.New("disk full")}
	r := NewRecorder(s, nil)
	assert.NotPanics(
		t, func() {
			r.Record(model.AuditActionLogout, model.AuditEntityUser, "User admin logged out", "admin")
		},
	)
	assert.Empty(t, s.entries)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Login("admin", "") })
}

func TestChanges(t *testing.T) {
	before := model.ResourceInput{Title: "Form", Category: "forms", FileURL: "/uploads/a.pdf"}
	after := model.ResourceInput{Title: "Form 2024", Category: "forms", FileURL: "/uploads/b.pdf"}
	assert.Equal(t, []string{"title", "fileUrl"}, Changes(before, after))
	assert.Empty(t, Changes(before, before))

	news := model.NewsInput{Title: "x", Images: []string{"/a"}}
	other := news
	other.Images = []string{"/a", "/b"}
	assert.Equal(t, []string{"images"}, Changes(&news, &other))

	assert.Equal(t, "Updated resource: Form (title, fileUrl)", Describe("Updated resource: Form", []string{"title", "fileUrl"}))
	assert.Equal(t, "Updated resource: Form", Describe("Updated resource: Form", nil))
}
