package handoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_PutLoadClear(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(NewMemoryStore(time.Hour))

	err := bridge.Put(ctx, "s1", []byte(`{"description":"A cat"}`), "uploads/abc_cat.png")
	require.NoError(t, err)

	view, err := bridge.Load(ctx, "s1", "http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "A cat", view.Result().Description)
	assert.Equal(t, "uploads/abc_cat.png", view.ImagePath())
	assert.Equal(t, "http://localhost:8000", view.Origin())

	// other sessions do not see the hand-off
	_, err = bridge.Load(ctx, "s2", "")
	assert.ErrorIs(t, err, ErrMissingData)

	require.NoError(t, bridge.Clear(ctx, "s1"))
	_, err = bridge.Load(ctx, "s1", "")
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestBridge_LoadMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	bridge := NewBridge(store)

	require.NoError(t, store.Set(ctx, "s1", KeyAnalysisResults, `{}`))
	_, err := bridge.Load(ctx, "s1", "")
	assert.ErrorIs(t, err, ErrMissingData)
	assert.Equal(t, AlertMissingData, AlertFor(err))

	require.NoError(t, store.Delete(ctx, "s1", KeyAnalysisResults))
	require.NoError(t, store.Set(ctx, "s1", KeyImagePath, "x.png"))
	_, err = bridge.Load(ctx, "s1", "")
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestBridge_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(NewMemoryStore(time.Hour))

	// valid JSON that is not an object is malformed too
	for _, doc := range []string{`{not json`, `null`, `[]`, `"x"`, `42`} {
		require.NoError(t, bridge.Put(ctx, "s1", []byte(doc), "x.png"))
		_, err := bridge.Load(ctx, "s1", "")
		assert.ErrorIs(t, err, ErrMalformedData, "document %s", doc)
		assert.Equal(t, AlertMalformedData, AlertFor(err))
	}
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	return "", false, errors.New("store unavailable")
}

func TestBridge_LoadStoreError(t *testing.T) {
	bridge := NewBridge(&failingStore{})

	_, err := bridge.Load(context.Background(), "s1", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedData)
	assert.Equal(t, AlertMissingData, AlertFor(err))
}

func TestBridge_Flash(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(NewMemoryStore(time.Hour))

	assert.Empty(t, bridge.TakeFlash(ctx, "s1"))
	require.NoError(t, bridge.SetFlash(ctx, "s1", "hello"))
	assert.Equal(t, "hello", bridge.TakeFlash(ctx, "s1"))
	assert.Empty(t, bridge.TakeFlash(ctx, "s1"))
}

func TestMemoryStore_DeleteIgnoresMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Delete(ctx, "nobody", "a", "b"))
	require.NoError(t, store.Set(ctx, "s1", "a", "1"))
	require.NoError(t, store.Delete(ctx, "s1", "a", "b"))

	_, ok, err := store.Get(ctx, "s1", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "s1", KeyImagePath, "x.png"))
	require.NoError(t, store.Set(ctx, "s2", KeyImagePath, "y.png"))

	now = now.Add(50 * time.Second)
	// writing refreshes the session
	require.NoError(t, store.Set(ctx, "s2", keyFlash, "hi"))

	now = now.Add(20 * time.Second)
	_, ok, err := store.Get(ctx, "s1", KeyImagePath)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len(), "expired session is dropped on read")

	value, ok, err := store.Get(ctx, "s2", KeyImagePath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y.png", value)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SweepUnreadSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Millisecond)

	for i := 0; i < 500; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("s%d", i), keyFlash, "alert"))
	}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 500, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_RunSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryStore(time.Millisecond)
	require.NoError(t, store.Set(ctx, "s1", keyFlash, "alert"))

	go store.RunSweeper(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, defaultTTL, NewMemoryStore(0).ttl)
}

func TestValkeyKey(t *testing.T) {
	assert.Equal(t, "handoff:s1:imagePath", valkeyKey("s1", KeyImagePath))
}
