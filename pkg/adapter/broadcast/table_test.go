package broadcast

import (
	"errors"
	"io"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/marmos91/talko/pkg/wire"
)

// =============================================================================
// Put / Remove Tests
// =============================================================================

func TestTable_PutReplaceRemove(t *testing.T) {
	table := NewTable()

	srv1, cli1 := net.Pipe()
	defer srv1.Close()
	defer cli1.Close()

	srv2, cli2 := net.Pipe()
	defer srv2.Close()
	defer cli2.Close()

	t.Run("FirstPutReturnsNil", func(t *testing.T) {
		if prev := table.Put(7, srv1); prev != nil {
			t.Errorf("Expected nil previous connection, got %v", prev)
		}
		if table.Len() != 1 {
			t.Errorf("Expected 1 subscriber, got %d", table.Len())
		}
	})

	t.Run("ReplacePutReturnsPrevious", func(t *testing.T) {
		prev := table.Put(7, srv2)
		if prev != srv1 {
			t.Errorf("Expected previous connection srv1, got %v", prev)
		}
		if table.Len() != 1 {
			t.Errorf("Expected 1 subscriber after replace, got %d", table.Len())
		}

		// The replaced socket must stay open: a read on its peer should
		// time out rather than return EOF.
		if err := cli1.SetReadDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
			t.Fatalf("SetReadDeadline failed: %v", err)
		}
		buf := make([]byte, 1)
		_, err := cli1.Read(buf)
		if err == nil {
			t.Fatal("Expected read error on idle connection")
		}
		if errors.Is(err, io.EOF) {
			t.Error("Replaced connection was closed, expected it left open")
		}
	})

	t.Run("RemoveReturnsConn", func(t *testing.T) {
		removed := table.Remove(7)
		if removed != srv2 {
			t.Errorf("Expected removed connection srv2, got %v", removed)
		}
		if table.Len() != 0 {
			t.Errorf("Expected empty table, got %d subscribers", table.Len())
		}
	})

	t.Run("RemoveMissingReturnsNil", func(t *testing.T) {
		if removed := table.Remove(7); removed != nil {
			t.Errorf("Expected nil for missing subscriber, got %v", removed)
		}
	})
}

// =============================================================================
// Push Tests
// =============================================================================

func TestTable_Push(t *testing.T) {
	t.Run("DeliversFrame", func(t *testing.T) {
		table := NewTable()

		srv, cli := net.Pipe()
		defer srv.Close()
		defer cli.Close()

		table.Put(42, srv)

		// Read in a goroutine since net.Pipe is synchronous
		gotCh := make(chan []byte, 1)
		errCh := make(chan error, 1)
		go func() {
			payload, err := wire.ReadFrame(cli)
			if err != nil {
				errCh <- err
				return
			}
			gotCh <- payload
		}()

		frame := []byte(`{"result":{"message":{"message_id":1}}}`)
		if err := table.Push(42, frame, time.Second); err != nil {
			t.Fatalf("Push failed: %v", err)
		}

		select {
		case got := <-gotCh:
			if string(got) != string(frame) {
				t.Errorf("Expected frame %q, got %q", frame, got)
			}
		case err := <-errCh:
			t.Fatalf("Reading pushed frame failed: %v", err)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for pushed frame")
		}
	})

	t.Run("NoSubscriber", func(t *testing.T) {
		table := NewTable()

		err := table.Push(99, []byte(`{}`), time.Second)
		if !errors.Is(err, ErrNoSubscriber) {
			t.Errorf("Expected ErrNoSubscriber, got %v", err)
		}
	})

	t.Run("FailedPushDropsEntry", func(t *testing.T) {
		table := NewTable()

		srv, cli := net.Pipe()
		defer cli.Close()

		table.Put(5, srv)
		srv.Close()

		err := table.Push(5, []byte(`{}`), time.Second)
		if err == nil {
			t.Fatal("Expected push to a closed connection to fail")
		}
		if errors.Is(err, ErrNoSubscriber) {
			t.Fatal("Expected a write error, got ErrNoSubscriber")
		}

		if table.Len() != 0 {
			t.Errorf("Expected failed subscriber to be dropped, table has %d", table.Len())
		}

		// The entry is gone, so the next push reports no subscriber
		if err := table.Push(5, []byte(`{}`), time.Second); !errors.Is(err, ErrNoSubscriber) {
			t.Errorf("Expected ErrNoSubscriber after drop, got %v", err)
		}
	})
}

// =============================================================================
// IDs / CloseAll Tests
// =============================================================================

func TestTable_IDsSorted(t *testing.T) {
	table := NewTable()
	defer table.CloseAll()

	for _, id := range []int64{30, 10, 20} {
		srv, cli := net.Pipe()
		defer cli.Close()
		table.Put(id, srv)
	}

	ids := table.IDs()
	want := []int64{10, 20, 30}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Expected ids %v, got %v", want, ids)
	}
}

func TestTable_CloseAll(t *testing.T) {
	table := NewTable()

	srv1, cli1 := net.Pipe()
	defer cli1.Close()
	srv2, cli2 := net.Pipe()
	defer cli2.Close()

	table.Put(1, srv1)
	table.Put(2, srv2)

	if closed := table.CloseAll(); closed != 2 {
		t.Errorf("Expected 2 closed streams, got %d", closed)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table after CloseAll, got %d", table.Len())
	}

	// Peers observe the closure
	buf := make([]byte, 1)
	if _, err := cli1.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF on first peer, got %v", err)
	}
	if _, err := cli2.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF on second peer, got %v", err)
	}

	if closed := table.CloseAll(); closed != 0 {
		t.Errorf("Expected second CloseAll to close nothing, got %d", closed)
	}
}
