// Package badger implements a BadgerDB-backed chat store.
//
// BadgerDB is an embedded key-value store, so all chat entities are kept
// under prefixed keys (see encoding.go for the namespace design). The
// backend suits single-node deployments that want persistence without an
// external database server.
package badger

import (
	"context"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/talko/pkg/store/chat"
)

// sequenceBandwidth is how many ids each sequence leases at a time.
// Larger values mean fewer disk writes but more ids lost on crash.
const sequenceBandwidth = 64

// BadgerChatStore implements the chat.Store interface on top of BadgerDB.
type BadgerChatStore struct {
	db      *badger.DB
	userSeq *badger.Sequence
	chatSeq *badger.Sequence
	msgSeq  *badger.Sequence
}

// Options configures a BadgerDB chat store.
type Options struct {
	// Path is the directory holding the database files.
	// Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory without touching disk.
	// All data is lost on Close. Useful for tests.
	InMemory bool
}

// New opens (or creates) a BadgerDB chat store at the given path.
func New(path string) (*BadgerChatStore, error) {
	return NewWithOptions(Options{Path: path})
}

// NewWithOptions opens a BadgerDB chat store with explicit options.
func NewWithOptions(options Options) (*BadgerChatStore, error) {
	var opts badger.Options
	if options.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if options.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		if err := os.MkdirAll(options.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(options.Path)
	}
	opts.Logger = nil // Badger's default logger is too chatty for library use

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	store := &BadgerChatStore{db: db}

	for _, seq := range []struct {
		key  string
		dest **badger.Sequence
	}{
		{keySequenceUsers, &store.userSeq},
		{keySequenceChats, &store.chatSeq},
		{keySequenceMessages, &store.msgSeq},
	} {
		s, err := db.GetSequence([]byte(seq.key), sequenceBandwidth)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open sequence %s: %w", seq.key, err)
		}
		*seq.dest = s
	}

	return store, nil
}

// nextID returns the next id from a sequence, shifted so ids start at 1.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return int64(n) + 1, nil
}

// Ping verifies the database is open and readable.
func (s *BadgerChatStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return chat.ErrStoreClosed
	}
	return s.db.View(func(txn *badger.Txn) error {
		return nil
	})
}

// Close releases the id sequences and closes the database.
func (s *BadgerChatStore) Close() error {
	// Releasing sequences returns unused leased ids to the store.
	for _, seq := range []*badger.Sequence{s.userSeq, s.chatSeq, s.msgSeq} {
		if seq != nil {
			if err := seq.Release(); err != nil && !s.db.IsClosed() {
				return fmt.Errorf("failed to release sequence: %w", err)
			}
		}
	}
	return s.db.Close()
}
