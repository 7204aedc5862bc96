package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/storage/model"
)

func TestAuditAppendAndList(t *testing.T) {
	audit := newTestStorage(t).AuditStorage()
	assert.Error(t, audit.Append(nil))

	start := time.Now().Add(-time.Hour)
	entries := []model.AuditLog{
		{Action: model.AuditActionLogin, Entity: model.AuditEntityUser, PerformedBy: "admin"},
		{Action: model.AuditActionCreate, Entity: model.AuditEntityNews, PerformedBy: "admin"},
		{Action: model.AuditActionUpdate, Entity: model.AuditEntityNews, PerformedBy: "staff"},
		{Action: model.AuditActionDelete, Entity: model.AuditEntityNews, PerformedBy: "staff"},
		{Action: model.AuditActionLogout, Entity: model.AuditEntityUser, PerformedBy: "admin"},
	}
	for i := range entries {
		entries[i].Timestamp = start.Add(time.Duration(i) * time.Minute)
		require.NoError(t, audit.Append(&entries[i]))
		assert.NotEmpty(t, entries[i].ID)
	}

	all, total, err := audit.List(model.AuditQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, all, 5)
	assert.Equal(t, model.AuditActionLogout, all[0].Action)
	assert.Equal(t, model.AuditActionLogin, all[4].Action)

	news, total, err := audit.List(model.AuditQuery{Entity: model.AuditEntityNews})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, news, 3)

	logins, total, err := audit.List(model.AuditQuery{Action: model.AuditActionLogin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logins, 1)
	assert.Equal(t, "admin", logins[0].PerformedBy)

	page, total, err := audit.List(model.AuditQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, model.AuditActionUpdate, page[0].Action)
	assert.Equal(t, model.AuditActionCreate, page[1].Action)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, clampLimit(0, 100, 1000))
	assert.Equal(t, 100, clampLimit(-3, 100, 1000))
	assert.Equal(t, 20, clampLimit(20, 100, 1000))
	assert.Equal(t, 1000, clampLimit(5000, 100, 1000))
}
