package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/cache"
	"github.com/aldidev/snipurl/internal/models"
)

func newTestURLService(t *testing.T, db *gorm.DB, store cache.Store) *URLService {
	t.Helper()

	svc, err := NewURLService(db, store)
	require.NoError(t, err)
	return svc
}

func TestURLCreateAndConflict(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	urls := newTestURLService(t, db, nil)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")

	created, err := urls.Create(ctx, CreateURLInput{
		UserID:  alice.ID,
		Origin:  "https://example.com/some/long/path",
		Shorten: "docs",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Zero(t, created.Clicks)

	// The handle is global, another user cannot claim it either.
	_, err = urls.Create(ctx, CreateURLInput{
		UserID:  bob.ID,
		Origin:  "https://elsewhere.example",
		Shorten: "docs",
	})
	require.ErrorIs(t, err, ErrShortenTaken)
}

func TestURLListByUserNewestFirst(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	urls := newTestURLService(t, db, nil)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")

	older := models.URL{Origin: "https://example.com/1", Shorten: "one", UserID: alice.ID}
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&older).Error)

	newer := models.URL{Origin: "https://example.com/2", Shorten: "two", UserID: alice.ID}
	require.NoError(t, db.Create(&newer).Error)

	list, err := urls.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "two", list[0].Shorten)
	require.Equal(t, "one", list[1].Shorten)
}

func TestURLResolveCountsClicks(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	urls := newTestURLService(t, db, nil)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	created, err := urls.Create(ctx, CreateURLInput{
		UserID:  alice.ID,
		Origin:  "https://example.com/landing",
		Shorten: "land",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		origin, err := urls.Resolve(ctx, "land")
		require.NoError(t, err)
		require.Equal(t, "https://example.com/landing", origin)
	}

	var reloaded models.URL
	require.NoError(t, db.Take(&reloaded, "id = ?", created.ID).Error)
	require.EqualValues(t, 3, reloaded.Clicks)

	_, err = urls.Resolve(ctx, "missing")
	require.ErrorIs(t, err, ErrURLNotFound)
}

func TestURLResolveUsesCache(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	store := cache.NewDatabaseStore(db)
	urls := newTestURLService(t, db, store)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	_, err := urls.Create(ctx, CreateURLInput{
		UserID:  alice.ID,
		Origin:  "https://example.com/cached",
		Shorten: "hot",
	})
	require.NoError(t, err)

	origin, err := urls.Resolve(ctx, "hot")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/cached", origin)

	cached, ok, err := store.Get(ctx, "url:hot")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/cached", string(cached))

	// Cached resolutions still count clicks.
	_, err = urls.Resolve(ctx, "hot")
	require.NoError(t, err)

	var reloaded models.URL
	require.NoError(t, db.Take(&reloaded, "shorten = ?", "hot").Error)
	require.EqualValues(t, 2, reloaded.Clicks)
}

func TestURLRemove(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	store := cache.NewDatabaseStore(db)
	urls := newTestURLService(t, db, store)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")

	_, err := urls.Create(ctx, CreateURLInput{
		UserID:  alice.ID,
		Origin:  "https://example.com/gone",
		Shorten: "gone",
	})
	require.NoError(t, err)

	_, err = urls.Resolve(ctx, "gone")
	require.NoError(t, err)

	// Only the owner may remove a link.
	require.ErrorIs(t, urls.Remove(ctx, bob.ID, "gone"), ErrURLNotFound)

	require.NoError(t, urls.Remove(ctx, alice.ID, "gone"))
	require.ErrorIs(t, urls.Remove(ctx, alice.ID, "gone"), ErrURLNotFound)

	_, ok, err := store.Get(ctx, "url:gone")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestURLRemoveMany(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	urls := newTestURLService(t, db, nil)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	bob := createTestUser(t, users, "bob", "bob@example.com")

	var ids []string
	for _, shorten := range []string{"a", "b", "c"} {
		created, err := urls.Create(ctx, CreateURLInput{
			UserID:  alice.ID,
			Origin:  "https://example.com/" + shorten,
			Shorten: shorten,
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	other, err := urls.Create(ctx, CreateURLInput{
		UserID:  bob.ID,
		Origin:  "https://example.com/bob",
		Shorten: "bobs",
	})
	require.NoError(t, err)

	// Bob's id in the batch is ignored, duplicates and blanks too.
	batch := []string{ids[0], ids[1], ids[0], "", other.ID}
	removed, err := urls.RemoveMany(ctx, alice.ID, batch)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	remaining, err := urls.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "c", remaining[0].Shorten)

	removed, err = urls.RemoveMany(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Zero(t, removed)
}
