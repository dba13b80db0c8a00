package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/talko/pkg/store/chat"
	"github.com/marmos91/talko/pkg/store/chat/memory"
)

// seedStore fills a memory store with a small conversation.
func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	alice, err := store.CreateUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, "bob")
	require.NoError(t, err)

	c, err := store.CreateChat(ctx, "pair", true, []int64{alice.UserID, bob.UserID})
	require.NoError(t, err)

	_, err = store.CreateMessage(ctx, c.ChatID, alice.UserID, "hi", 1000)
	require.NoError(t, err)
	_, err = store.CreateMessage(ctx, c.ChatID, bob.UserID, "hey", 2000)
	require.NoError(t, err)

	return store
}

func TestDumpAndRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := seedStore(t)
	target := fileTarget(filepath.Join(t.TempDir(), "backup.json"))

	manifest, err := Dump(ctx, source, target)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, manifest.FormatVersion)
	assert.Equal(t, 2, manifest.Users)
	assert.Equal(t, 1, manifest.Chats)
	assert.Equal(t, 2, manifest.Participants)
	assert.Equal(t, 2, manifest.Messages)

	restored := memory.New()
	t.Cleanup(func() { restored.Close() })

	_, err = Restore(ctx, restored, target)
	require.NoError(t, err)

	want, err := source.Export(ctx)
	require.NoError(t, err)
	got, err := restored.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Ids keep counting past the imported records.
	carol, err := restored.CreateUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(3), carol.UserID)
}

func TestRestoreRefusesNonEmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	target := fileTarget(filepath.Join(t.TempDir(), "backup.json"))
	_, err := Dump(ctx, seedStore(t), target)
	require.NoError(t, err)

	occupied := seedStore(t)
	_, err = Restore(ctx, occupied, target)
	assert.ErrorContains(t, err, "non-empty")
}

func TestRestoreRejectsUnknownFormatVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	target := fileTarget(filepath.Join(t.TempDir(), "backup.json"))
	require.NoError(t, target.Write(ctx, []byte(`{"manifest":{"format_version":99},"snapshot":{}}`)))

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	_, err := Restore(ctx, store, target)
	assert.ErrorContains(t, err, "format version")
}

func TestDumpRequiresExporter(t *testing.T) {
	t.Parallel()

	var store chat.Store = noExportStore{}
	_, err := Dump(context.Background(), store, fileTarget("unused"))
	assert.ErrorContains(t, err, "does not support export")
}

func TestParseS3URL(t *testing.T) {
	t.Parallel()

	bucket, key, err := parseS3URL("s3://backups/talko/2026-08-25.json")
	require.NoError(t, err)
	assert.Equal(t, "backups", bucket)
	assert.Equal(t, "talko/2026-08-25.json", key)

	_, _, err = parseS3URL("s3://missing-key")
	assert.Error(t, err)
	_, _, err = parseS3URL("s3:///no-bucket")
	assert.Error(t, err)
}

// noExportStore is a chat.Store without snapshot support.
type noExportStore struct {
	chat.Store
}
