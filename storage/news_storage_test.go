package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/storage/model"
)

func TestNewsCRUD(t *testing.T) {
	news := newTestStorage(t).NewsStorage()

	_, err := news.Create(model.NewsInput{})
	assert.IsType(t, model.ValidationError(""), err)

	created, err := news.Create(
		model.NewsInput{
			Title:  "Open day",
			Date:   "2024-05-01",
			Images: []string{"/uploads/a.jpg", "", "/uploads/b.jpg"},
		},
	)
	require.NoError(t, err)
	assert.Len(t, created.Images, 2)

	got, err := news.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open day", got.Title)
	assert.Len(t, got.Images, 2)

	updated, err := news.Update(created.ID, model.NewsInput{Title: "Open day 2024", Date: "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, "Open day 2024", updated.Title)
	assert.Len(t, updated.Images, 2, "nil images keep the gallery")

	updated, err = news.Update(
		created.ID, model.NewsInput{Title: "Open day 2024", Images: []string{"/uploads/c.jpg"}},
	)
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "/uploads/c.jpg", updated.Images[0].URL)

	deleted, err := news.Delete(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	_, err = news.Get(created.ID)
	assert.IsType(t, model.NotFoundError(""), err)
	_, err = news.Delete(created.ID)
	assert.IsType(t, model.NotFoundError(""), err)
}

func TestNewsOrdering(t *testing.T) {
	news := newTestStorage(t).NewsStorage()
	older, err := news.Create(model.NewsInput{Title: "older", Date: "2024-01-01"})
	require.NoError(t, err)
	newer, err := news.Create(model.NewsInput{Title: "newer", Date: "2024-06-01"})
	require.NoError(t, err)

	list, err := news.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, news.Reorder([]string{older.ID, newer.ID}))
	list, err = news.List()
	require.NoError(t, err)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)

	err = news.Reorder([]string{newer.ID, "missing"})
	assert.IsType(t, model.NotFoundError(""), err)
	list, err = news.List()
	require.NoError(t, err)
	assert.Equal(t, older.ID, list[0].ID, "failed reorder is rolled back")
}
