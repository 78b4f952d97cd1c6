package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPreferenceBatch_LastOccurrenceWins(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	affected, err := s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 1, Category: "UI", Key: "Theme", Value: "dark"},
		{UserID: 1, Category: "UI", Key: "Theme", Value: "light"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected, "duplicate keys collapse before counting")

	entry, err := s.GetPreference(ctx, 1, "UI", "Theme")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "light", entry.Value)

	// The earlier duplicate was discarded, not applied then overwritten.
	assert.Equal(t, 1, driver.upsertCalls)
}

func TestApplyPreferenceBatch_Tombstone(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	_, err := s.UpsertPreference(ctx, &UpsertPreference{
		UserID: 1, Category: "UI", Key: "FontSize", Value: "14", ValueType: ValueTypeInt,
	})
	require.NoError(t, err)

	affected, err := s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 1, Category: "UI", Key: "FontSize", Value: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected, "deleting an existing entry counts")

	entry, err := s.GetPreference(ctx, 1, "UI", "FontSize")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// The same tombstone against a user with no such entry is a no-op.
	affected, err = s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 2, Category: "UI", Key: "FontSize", Value: ""},
	})
	require.NoError(t, err)
	assert.Zero(t, affected, "deleting something absent has no effect")
}

func TestApplyPreferenceBatch_MalformedEntriesSkipped(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	affected, err := s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 1, Category: "", Key: "Theme", Value: "dark"},
		{UserID: 1, Category: "UI", Key: "   ", Value: "dark"},
		{UserID: 0, Category: "UI", Key: "Theme", Value: "dark"},
		{UserID: 1, Category: "UI", Key: "Theme", Value: "dark"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected, "only the well-formed entry is applied")
}

func TestApplyPreferenceBatch_MultipleUsers(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	affected, err := s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 1, Category: "UI", Key: "Theme", Value: "dark"},
		{UserID: 2, Category: "UI", Key: "Theme", Value: "light"},
		{UserID: 2, Category: "Editor", Key: "TabWidth", Value: "4", ValueType: ValueTypeInt},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected, "count sums across users")
}

func TestApplyPreferenceBatch_Reapply(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	batch := []PreferenceWrite{
		{UserID: 1, Category: "UI", Key: "Theme", Value: "dark"},
		{UserID: 1, Category: "UI", Key: "Stale", Value: ""},
	}

	affected, err := s.ApplyPreferenceBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Re-applying is safe: the upsert counts again (no value-equality
	// short-circuit), the tombstone stays a no-op.
	affected, err = s.ApplyPreferenceBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestApplyPreferenceBatch_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)
	defer s.Close()

	_, err := s.UpsertPreference(ctx, &UpsertPreference{
		UserID: 1, Category: "UI", Key: "Old", Value: "x",
	})
	require.NoError(t, err)

	var mu sync.Mutex
	byType := map[PreferenceChangeType]int{}
	s.Events().Subscribe("", func(_ context.Context, e PreferenceChangedEvent) {
		mu.Lock()
		defer mu.Unlock()
		byType[e.ChangeType]++
	})

	_, err = s.ApplyPreferenceBatch(ctx, []PreferenceWrite{
		{UserID: 1, Category: "UI", Key: "Theme", Value: "dark"},
		{UserID: 1, Category: "UI", Key: "Old", Value: "y"},
		{UserID: 1, Category: "UI", Key: "Old2", Value: ""},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, byType[PreferenceCreated])
	assert.Equal(t, 1, byType[PreferenceUpdated])
	assert.Zero(t, byType[PreferenceDeleted], "tombstone on an absent key publishes nothing")
}
