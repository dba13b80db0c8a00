package broadcast

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/talko/pkg/wire"
)

// ErrNoSubscriber indicates a push to a user without an open stream.
var ErrNoSubscriber = errors.New("no subscriber for user")

// subscriber is one registered stream. The mutex serializes frame writes
// so concurrent broadcasts never interleave bytes on the socket.
type subscriber struct {
	conn net.Conn
	mu   sync.Mutex
}

// push writes one frame to the subscriber's socket.
func (s *subscriber) push(frame []byte, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	return wire.WriteFrame(s.conn, frame)
}

// Table maps user ids to their open push streams.
//
// The table is shared between the broadcast adapter's workers: OpenStream
// registers entries, Broadcast reads them, CloseStream and failed pushes
// remove them. Opening a stream for a user who already has one replaces
// the entry; the previous socket is not closed here, it is returned to the
// caller to deal with.
type Table struct {
	mu   sync.RWMutex
	subs map[int64]*subscriber
}

// NewTable creates an empty subscriber table.
func NewTable() *Table {
	return &Table{subs: make(map[int64]*subscriber)}
}

// Put registers conn as userID's stream and returns the connection it
// replaced, nil if the user had none.
func (t *Table) Put(userID int64, conn net.Conn) net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()

	var prev net.Conn
	if old, ok := t.subs[userID]; ok {
		prev = old.conn
	}
	t.subs[userID] = &subscriber{conn: conn}
	return prev
}

// Remove unregisters userID's stream and returns the removed connection,
// nil if none was registered. The connection is not closed.
func (t *Table) Remove(userID int64) net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subs[userID]
	if !ok {
		return nil
	}
	delete(t.subs, userID)
	return sub.conn
}

// Push writes frame to userID's stream. It returns ErrNoSubscriber when
// the user has no open stream. On a write failure the entry is dropped,
// its socket closed, and the write error returned.
func (t *Table) Push(userID int64, frame []byte, timeout time.Duration) error {
	t.mu.RLock()
	sub, ok := t.subs[userID]
	t.mu.RUnlock()

	if !ok {
		return ErrNoSubscriber
	}

	if err := sub.push(frame, timeout); err != nil {
		t.dropIf(userID, sub)
		return err
	}
	return nil
}

// dropIf removes userID's entry if it still maps to sub and closes sub's
// socket. A replacement stream that raced in is left untouched.
func (t *Table) dropIf(userID int64, sub *subscriber) {
	t.mu.Lock()
	if current, ok := t.subs[userID]; ok && current == sub {
		delete(t.subs, userID)
	}
	t.mu.Unlock()

	_ = sub.conn.Close()
}

// Len returns the number of open streams.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// IDs returns the subscribed user ids in ascending order.
func (t *Table) IDs() []int64 {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CloseAll closes every stream and empties the table, returning the
// number of streams closed.
func (t *Table) CloseAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	closed := 0
	for id, sub := range t.subs {
		_ = sub.conn.Close()
		delete(t.subs, id)
		closed++
	}
	return closed
}
