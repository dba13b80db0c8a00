package chat

import "context"

// Snapshot is a full copy of a store's contents with ids preserved. It is
// the interchange format for backup and restore.
type Snapshot struct {
	Users        []User        `json:"users"`
	Chats        []Chat        `json:"chats"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
}

// Exporter is implemented by stores that can enumerate their full
// contents. The SQL and memory backends implement it; BadgerDB deployments
// are backed up by copying the database directory while the daemon is
// stopped.
type Exporter interface {
	// Export returns a consistent snapshot of the whole store.
	Export(ctx context.Context) (*Snapshot, error)
}

// Importer is implemented by stores that can load a snapshot. The target
// store must be empty: imported records keep their original ids.
type Importer interface {
	// Import loads a snapshot into an empty store.
	Import(ctx context.Context, snap *Snapshot) error
}
