package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

func testSession(id string) *types.GameSession {
	return &types.GameSession{
		ID: id,
		Player: types.Player{
			Name: "Miller", Rank: "Sergeant", Class: types.ClassRifleman, Weapon: "Rifle",
			Health: 90, MaxHealth: 100, Morale: 80,
		},
		Resources: types.Resources{Ammo: 12, Medkits: 2, Explosives: 2},
		Mission:   &types.Mission{ID: "carentan", Name: "Liberation of Carentan", Difficulty: types.DifficultyMedium},
		State:     types.StateAwaitingChoice,
		Narrative: types.NarrativeState{Text: "Dawn.", LastChunk: "1. Go\n2. Wait\n3. Hold"},
		CreatedAt: time.Date(2024, 6, 6, 6, 30, 0, 0, time.UTC),
	}
}

// exerciseSessionStore runs the behaviour every session store shares
func exerciseSessionStore(t *testing.T, store interfaces.SessionStore) {
	t.Helper()
	ctx := context.Background()

	// Missing session
	_, err := store.Load(ctx, "nobody")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	// Round trip
	session := testSession("wa:5521999999999")
	require.NoError(t, store.Save(ctx, session))
	loaded, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Player, loaded.Player)
	assert.Equal(t, session.Narrative, loaded.Narrative)
	assert.Equal(t, "carentan", loaded.Mission.ID)

	// Overwrite
	session.Player.Health = 40
	session.State = types.StateMissionFailed
	require.NoError(t, store.Save(ctx, session))
	loaded, err = store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Player.Health)
	assert.Equal(t, types.StateMissionFailed, loaded.State)

	// Loaded sessions are copies
	loaded.Player.Name = "Changed"
	again, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Miller", again.Player.Name)

	// Delete, twice
	require.NoError(t, store.Delete(ctx, session.ID))
	_, err = store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, session.ID))
}

// exerciseArchive runs the behaviour every archive shares
func exerciseArchive(t *testing.T, archive interfaces.ArchiveStore) {
	t.Helper()
	ctx := context.Background()

	_, err := archive.Get(ctx, "s1", "full_story_turn_1")
	assert.ErrorIs(t, err, types.ErrArchiveNotFound)

	require.NoError(t, archive.Put(ctx, "s1", "full_story_turn_1", "first text"))
	require.NoError(t, archive.Put(ctx, "s1", "full_story_turn_2", "second text"))
	require.NoError(t, archive.Put(ctx, "s1", "full_story_turn_1", "replaced text"))
	require.NoError(t, archive.Put(ctx, "s2", "full_story_turn_1", "other session"))

	text, err := archive.Get(ctx, "s1", "full_story_turn_1")
	require.NoError(t, err)
	assert.Equal(t, "replaced text", text)
	text, err = archive.Get(ctx, "s1", "full_story_turn_2")
	require.NoError(t, err)
	assert.Equal(t, "second text", text)

	if purger, ok := archive.(interfaces.ArchivePurger); ok {
		require.NoError(t, purger.Purge(ctx, "s1"))
		_, err = archive.Get(ctx, "s1", "full_story_turn_2")
		assert.ErrorIs(t, err, types.ErrArchiveNotFound)
		text, err = archive.Get(ctx, "s2", "full_story_turn_1")
		require.NoError(t, err)
		assert.Equal(t, "other session", text)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseSessionStore(t, NewMemoryStore())
	exerciseArchive(t, NewMemoryStore())
}

func TestSQLStoreSQLite(t *testing.T) {
	// Setup
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "frontline.db")
	store, err := OpenSQL(ctx, "sqlite", path, nil)
	require.NoError(t, err)
	defer store.Close()

	// Test case 1: Sessions
	exerciseSessionStore(t, store)

	// Test case 2: Archive
	exerciseArchive(t, store)

	// Test case 3: Corrupt payloads are reported as such
	_, err = store.db.ExecContext(ctx,
		"INSERT INTO sessions (id, player_name, state, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"broken", "", "", "{", time.Now(), time.Now())
	require.NoError(t, err)
	_, err = store.Load(ctx, "broken")
	assert.ErrorIs(t, err, types.ErrSessionCorrupt)

	// Test case 4: Deleting a session drops its archive
	require.NoError(t, store.Save(ctx, testSession("s3")))
	require.NoError(t, store.Put(ctx, "s3", "full_story_turn_1", "text"))
	require.NoError(t, store.Delete(ctx, "s3"))
	_, err = store.Get(ctx, "s3", "full_story_turn_1")
	assert.ErrorIs(t, err, types.ErrArchiveNotFound)
}

func TestSQLStoreMigrationsRunOnce(t *testing.T) {
	// Setup
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "frontline.db")

	// Test case 1: Reopening keeps data and does not reapply migrations
	store, err := OpenSQL(ctx, "sqlite", path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testSession("s1")))
	require.NoError(t, store.Close())

	store, err = OpenSQL(ctx, "SQLite", path, nil)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Load(ctx, "s1")
	assert.NoError(t, err)

	var versions int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}

func TestOpenSQLErrors(t *testing.T) {
	// Test case 1: Postgres needs a DSN
	_, err := OpenSQL(context.Background(), "postgres", "", nil)
	assert.ErrorContains(t, err, "requires a DSN")

	// Test case 2: Unknown drivers
	_, err = OpenSQL(context.Background(), "oracle", "x", nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestArchiveKeys(t *testing.T) {
	assert.Equal(t, "narrative:wa:55:full_story_turn_3", archiveKey("wa:55", "full_story_turn_3"))
	assert.Equal(t, "narrative_tags:wa:55", archiveIndexKey("wa:55"))
}

func TestRedisArchive(t *testing.T) {
	addr := os.Getenv("FRONTLINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FRONTLINE_TEST_REDIS_ADDR not set")
	}

	// Setup
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	require.NoError(t, client.FlushDB(context.Background()).Err())

	// Test case 1: Shared archive behaviour
	archive := NewRedisArchive(client, time.Minute, nil)
	exerciseArchive(t, archive)

	// Test case 2: Entries expire
	ttl, err := client.TTL(context.Background(), archiveKey("s2", "full_story_turn_1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestOpen(t *testing.T) {
	// Setup
	ctx := context.Background()
	dir := t.TempDir()

	// Test case 1: SQLite serves both sessions and the archive
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(dir, "frontline.db")
	stores, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, stores.Sessions)
	assert.Same(t, stores.Sessions, stores.Archive)
	require.NoError(t, stores.Close())

	// Test case 2: File sessions with a memory archive
	cfg.Database.Driver = "file"
	cfg.Database.SessionDir = filepath.Join(dir, "sessions")
	cfg.Archive.Backend = "memory"
	stores, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &game.FileSessionStore{}, stores.Sessions)
	assert.IsType(t, &MemoryStore{}, stores.Archive)
	exerciseSessionStore(t, stores.Sessions)
	assert.NoError(t, stores.Close())

	// Test case 3: Memory for both shares one store
	cfg.Database.Driver = "memory"
	stores, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Same(t, stores.Sessions, stores.Archive)

	// Test case 4: Unknown backends
	cfg.Database.Driver = "oracle"
	_, err = Open(ctx, cfg, nil)
	assert.ErrorContains(t, err, "unsupported database driver")

	cfg.Database.Driver = "memory"
	cfg.Archive.Backend = "s3"
	_, err = Open(ctx, cfg, nil)
	assert.ErrorContains(t, err, "unsupported archive backend")
}
