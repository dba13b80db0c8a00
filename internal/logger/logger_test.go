package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
		SetLevel("INFO")
		SetFormat("text")
	}

	return buf, cleanup
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("bogus")

		Info("still here")
		assert.Contains(t, buf.String(), "still here")
	})
}

// ============================================================================
// Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("user created", KeyUserID, int64(42), KeyUserName, "alice")

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))

	assert.Equal(t, "user created", record["msg"])
	assert.Equal(t, float64(42), record[KeyUserID])
	assert.Equal(t, "alice", record[KeyUserName])
}

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Info("request handled", KeyMethod, "GetUser", KeyDurationMs, 1.5)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "request handled")
	assert.Contains(t, out, "method=GetUser")
	assert.Contains(t, out, "duration_ms=1.500")
}

func TestTextFormatQuotesSpaces(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("text")
	Info("message stored", KeyChatName, "general chatter")

	assert.Contains(t, buf.String(), `chat_name="general chatter"`)
}

// ============================================================================
// Field Constructor Tests
// ============================================================================

func TestFieldConstructors(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("text")

	Info("broadcast done",
		Adapter("broadcast"),
		Method("Broadcast"),
		ChatID(7),
		Receivers(3),
		Delivered(2),
	)

	out := buf.String()
	assert.Contains(t, out, "adapter=broadcast")
	assert.Contains(t, out, "method=Broadcast")
	assert.Contains(t, out, "chat_id=7")
	assert.Contains(t, out, "receivers=3")
	assert.Contains(t, out, "delivered=2")
}

func TestErrFieldNilError(t *testing.T) {
	attr := Err(nil)
	assert.True(t, attr.Equal(slog.Attr{}))
}

// ============================================================================
// Context-aware Logging Tests
// ============================================================================

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("text")

	lc := NewLogContext("data", "10.0.0.5", 17)
	lc = lc.WithMethod("InsertMessage").WithChat(3).WithUser(9)
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "message stored")

	out := buf.String()
	assert.Contains(t, out, "adapter=data")
	assert.Contains(t, out, "method=InsertMessage")
	assert.Contains(t, out, "chat_id=3")
	assert.Contains(t, out, "user_id=9")
	assert.Contains(t, out, "client_ip=10.0.0.5")
	assert.Contains(t, out, "conn_id=17")
}

func TestContextFieldsAbsent(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	InfoCtx(context.Background(), "no context attached")
	assert.Contains(t, buf.String(), "no context attached")
}

func TestLogContextClone(t *testing.T) {
	lc := NewLogContext("data", "127.0.0.1", 1)
	clone := lc.WithMethod("GetChats")

	assert.Empty(t, lc.Method)
	assert.Equal(t, "GetChats", clone.Method)
	assert.Equal(t, lc.ClientIP, clone.ClientIP)

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Nil(t, nilCtx.WithMethod("GetUser"))
	assert.Zero(t, nilCtx.DurationMs())
}

// ============================================================================
// Handler Tests
// ============================================================================

func TestTextHandlerGroups(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewTextHandler(buf, nil, false)
	l := slog.New(h).WithGroup("server")

	l.Info("listening", "port", 8888)

	assert.Contains(t, buf.String(), "server.port=8888")
}

func TestTextHandlerWithAttrs(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewTextHandler(buf, nil, false)
	l := slog.New(h).With("adapter", "data")

	l.Info("started")
	l.Info("stopped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "adapter=data")
	}
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talko.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	defer func() {
		InitWithWriter(os.Stdout, "INFO", "text", false)
	}()

	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitWithBadFilePath(t *testing.T) {
	err := Init(Config{Output: "/nonexistent-dir/deeper/talko.log"})
	require.Error(t, err)
	defer func() {
		InitWithWriter(os.Stdout, "INFO", "text", false)
	}()
	assert.Contains(t, err.Error(), "failed to open log file")
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Info("concurrent", KeyConnID, n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
}

func TestDuration(t *testing.T) {
	start := time.Now().Add(-10 * time.Millisecond)
	ms := Duration(start)
	assert.GreaterOrEqual(t, ms, 10.0)
	assert.Less(t, ms, 10000.0)
}
