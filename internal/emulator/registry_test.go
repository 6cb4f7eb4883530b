package emulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("")
	require.NoError(t, err)
	return r
}

func TestRegistryUsers(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.CreateUser(&User{Email: "a@example.com", PasswordHash: []byte("h")}))

	user, err := r.GetUser("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = r.GetUser("missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegistryVisibilityWindow(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now().UTC()

	require.NoError(t, r.CreateDocument(&Document{
		ID: "doc-visible", Owner: "a", Status: "pending", VisibleAt: now.Add(-time.Minute),
	}))
	require.NoError(t, r.CreateDocument(&Document{
		ID: "doc-held", Owner: "a", Status: "pending", VisibleAt: now.Add(time.Minute),
	}))

	docs, total, err := r.ListDocuments("a", now, 50, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-visible", docs[0].ID)

	// the window only hides documents from listings, not from the registry
	count, err := r.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// after the hold-back window both are listed
	docs, total, err = r.ListDocuments("a", now.Add(2*time.Minute), 50, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, docs, 2)
}

func TestRegistryListIsolatesOwners(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now().UTC()

	require.NoError(t, r.CreateDocument(&Document{ID: "doc-a", Owner: "a", Status: "pending", VisibleAt: now}))
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-b", Owner: "b", Status: "pending", VisibleAt: now}))

	docs, _, err := r.ListDocuments("a", now, 50, 0, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-a", docs[0].ID)
}

func TestRegistryStatusFilter(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now().UTC()

	require.NoError(t, r.CreateDocument(&Document{ID: "doc-1", Owner: "a", Status: "pending", VisibleAt: now}))
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-2", Owner: "a", Status: "ready", VisibleAt: now}))

	docs, total, err := r.ListDocuments("a", now, 50, 0, "ready")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
}

func TestRegistryAdvanceStatuses(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now().UTC()

	require.NoError(t, r.CreateDocument(&Document{ID: "doc-1", Owner: "a", Status: "pending", VisibleAt: now}))
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-2", Owner: "a", Status: "processing", VisibleAt: now}))
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-3", Owner: "a", Status: "ready", VisibleAt: now}))
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-4", Owner: "a", Status: "failed", VisibleAt: now}))

	require.NoError(t, r.AdvanceStatuses())

	statuses := map[string]string{}
	docs, _, err := r.ListDocuments("a", now, 50, 0, "")
	require.NoError(t, err)
	for _, d := range docs {
		statuses[d.ID] = d.Status
	}

	// one sweep moves each document a single step; terminal states hold
	assert.Equal(t, "processing", statuses["doc-1"])
	assert.Equal(t, "ready", statuses["doc-2"])
	assert.Equal(t, "ready", statuses["doc-3"])
	assert.Equal(t, "failed", statuses["doc-4"])
}

func TestRegistryDelete(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now().UTC()

	require.NoError(t, r.CreateDocument(&Document{
		ID: "doc-1", Owner: "a", Status: "pending", StoragePath: "ab/cd/doc", VisibleAt: now,
	}))

	doc, err := r.DeleteDocument("doc-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "ab/cd/doc", doc.StoragePath)

	_, err = r.GetDocument("doc-1", "a")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// deleting a document you do not own is not found
	require.NoError(t, r.CreateDocument(&Document{ID: "doc-2", Owner: "b", Status: "pending", VisibleAt: now}))
	_, err = r.DeleteDocument("doc-2", "a")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
