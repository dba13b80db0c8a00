// Package backup dumps and restores the chat store as a portable JSON
// archive.
//
// An archive wraps a chat.Snapshot with a small manifest (format version,
// creation time, record counts). Dump works against any store that
// implements chat.Exporter, Restore against any chat.Importer; both the
// memory and the SQL backends qualify. Archives travel to local files or,
// with an s3:// target, to S3-compatible object storage.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/store/chat"
)

// FormatVersion identifies the archive layout. Bump on incompatible
// changes to Archive or chat.Snapshot.
const FormatVersion = 1

// Manifest describes an archive's contents.
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
	Users         int       `json:"users"`
	Chats         int       `json:"chats"`
	Participants  int       `json:"participants"`
	Messages      int       `json:"messages"`
}

// Archive is the on-disk backup format: a manifest plus the full store
// snapshot.
type Archive struct {
	Manifest Manifest       `json:"manifest"`
	Snapshot *chat.Snapshot `json:"snapshot"`
}

// Dump exports the store and writes the archive to target. The store must
// implement chat.Exporter; BadgerDB does not, copy its directory while the
// daemon is stopped instead. Returns the manifest describing what was
// written.
func Dump(ctx context.Context, store chat.Store, target Target) (*Manifest, error) {
	exporter, ok := store.(chat.Exporter)
	if !ok {
		return nil, fmt.Errorf("store backend does not support export; back up its data directory instead")
	}

	snap, err := exporter.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export store: %w", err)
	}

	archive := Archive{
		Manifest: Manifest{
			FormatVersion: FormatVersion,
			CreatedAt:     time.Now().UTC(),
			Users:         len(snap.Users),
			Chats:         len(snap.Chats),
			Participants:  len(snap.Participants),
			Messages:      len(snap.Messages),
		},
		Snapshot: snap,
	}

	data, err := json.MarshalIndent(&archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}

	if err := target.Write(ctx, data); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Backup written",
		logger.Path(target.String()),
		logger.Count(archive.Manifest.Messages))

	return &archive.Manifest, nil
}

// Restore reads an archive from source and imports it into the store. The
// store must implement chat.Importer and must be empty; record ids are
// preserved.
func Restore(ctx context.Context, store chat.Store, source Target) (*Manifest, error) {
	importer, ok := store.(chat.Importer)
	if !ok {
		return nil, fmt.Errorf("store backend does not support import; restore its data directory instead")
	}

	data, err := source.Read(ctx)
	if err != nil {
		return nil, err
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	if archive.Manifest.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported archive format version %d (want %d)",
			archive.Manifest.FormatVersion, FormatVersion)
	}
	if archive.Snapshot == nil {
		return nil, fmt.Errorf("archive carries no snapshot")
	}

	if err := importer.Import(ctx, archive.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to import snapshot: %w", err)
	}

	logger.InfoCtx(ctx, "Backup restored",
		logger.Path(source.String()),
		logger.Count(archive.Manifest.Messages))

	return &archive.Manifest, nil
}
