package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenariochat/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestThreadRoundTrip(t *testing.T) {
	d := newTestDB(t)

	thread := &models.Thread{ID: "t1", UserID: "admin", Title: "Costs", CreatedAt: "2026-01-01T00:00:00Z"}
	require.NoError(t, d.StoreThread(thread))

	got, err := d.GetThread("admin", "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Costs", got.Title)

	missing, err := d.GetThread("admin", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnsureDefaultThreadIsIdempotent(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.EnsureDefaultThread("admin"))

	first, err := d.GetThread("admin", models.DefaultThreadID)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, d.EnsureDefaultThread("admin"))
	second, err := d.GetThread("admin", models.DefaultThreadID)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestListThreadsScopedByUser(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.StoreThread(&models.Thread{ID: "a", UserID: "admin", Title: "A"}))
	require.NoError(t, d.StoreThread(&models.Thread{ID: "b", UserID: "admin", Title: "B"}))
	require.NoError(t, d.StoreThread(&models.Thread{ID: "c", UserID: "other", Title: "C"}))

	threads, err := d.ListThreads("admin")
	require.NoError(t, err)
	assert.Len(t, threads, 2)
}

func TestMessagesKeepArrivalOrder(t *testing.T) {
	d := newTestDB(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, d.AppendMessage("t1", models.Message{Role: "user", Content: fmt.Sprintf("msg %d", i)}))
	}

	msgs, err := d.GetMessages("t1")
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("msg %d", i), m.Content)
	}
}

func TestMessageKeysUniqueForSameTimestamp(t *testing.T) {
	d := newTestDB(t)
	ts := int64(1234567890)
	k1 := d.nextMessageKey("t1", ts)
	k2 := d.nextMessageKey("t1", ts)
	assert.NotEqual(t, k1, k2)
	// later appends sort after earlier ones even within the same nanosecond
	assert.Less(t, string(k1), string(k2))
}

func TestDeleteThreadRemovesMessages(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.StoreThread(&models.Thread{ID: "t1", UserID: "admin"}))
	require.NoError(t, d.AppendMessage("t1", models.Message{Role: "user", Content: "hello"}))
	require.NoError(t, d.AppendMessage("t1", models.Message{Role: "assistant", Content: "hi"}))

	require.NoError(t, d.DeleteThread("admin", "t1"))

	gone, err := d.GetThread("admin", "t1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	msgs, err := d.GetMessages("t1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProvenanceRoundTrip(t *testing.T) {
	d := newTestDB(t)
	entry := models.ProvenanceEntry{
		QueryID:         "q1",
		FilePath:        "/scenarios/base/files/chart.html",
		OriginalContent: "<html>old</html>",
		Timestamp:       "2026-01-01T00:00:00Z",
	}
	require.NoError(t, d.StoreProvenance(entry))

	got, err := d.GetProvenance("q1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "<html>old</html>", got.OriginalContent)

	missing, err := d.GetProvenance("q2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreQueryFileGroupRejectsEmpty(t *testing.T) {
	d := newTestDB(t)
	err := d.StoreQueryFileGroup(&models.QueryFileGroup{ID: "g1", ScenarioID: "base"})
	assert.Error(t, err)
}

func TestQueryFileGroupsScopedByScenario(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.StoreQueryFileGroup(&models.QueryFileGroup{
		ID: "g1", ScenarioID: "base", Query: "q", Files: []string{"a.json"},
	}))
	require.NoError(t, d.StoreQueryFileGroup(&models.QueryFileGroup{
		ID: "g2", ScenarioID: "other", Query: "q", Files: []string{"b.json"},
	}))

	groups, err := d.ListQueryFileGroups("base")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
}

func TestRemoveFileFromGroupsPrunesEmptyGroups(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.StoreQueryFileGroup(&models.QueryFileGroup{
		ID: "g1", ScenarioID: "base", Query: "q1", Files: []string{"a.json", "b.html"},
	}))
	require.NoError(t, d.StoreQueryFileGroup(&models.QueryFileGroup{
		ID: "g2", ScenarioID: "base", Query: "q2", Files: []string{"a.json"},
	}))

	require.NoError(t, d.RemoveFileFromGroups("base", "a.json"))

	groups, err := d.ListQueryFileGroups("base")
	require.NoError(t, err)
	// g2 lost its only file and must be gone; g1 keeps b.html
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, []string{"b.html"}, groups[0].Files)
}

func TestRemoveFileFromGroupsIgnoresUnrelatedFiles(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.StoreQueryFileGroup(&models.QueryFileGroup{
		ID: "g1", ScenarioID: "base", Query: "q", Files: []string{"a.json"},
	}))
	require.NoError(t, d.RemoveFileFromGroups("base", "zzz.txt"))

	groups, err := d.ListQueryFileGroups("base")
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}
