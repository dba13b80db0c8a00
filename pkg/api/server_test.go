package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/store/chat/memory"
)

// fakeAdapter satisfies AdapterInfo with canned counters.
type fakeAdapter struct {
	protocol string
	port     int
	stats    adapter.Stats
}

func (f *fakeAdapter) Protocol() string     { return f.protocol }
func (f *fakeAdapter) Port() int            { return f.port }
func (f *fakeAdapter) Stats() adapter.Stats { return f.stats }

func testRouter(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	return NewRouter(deps)
}

func TestLiveness(t *testing.T) {
	t.Parallel()

	router := testRouter(t, Deps{Version: "test"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	t.Run("healthy store", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		defer func() { _ = store.Close() }()

		router := testRouter(t, Deps{Store: store})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing store", func(t *testing.T) {
		t.Parallel()

		router := testRouter(t, Deps{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("closed store", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		require.NoError(t, store.Close())

		router := testRouter(t, Deps{Store: store})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	subscribers := func() []int64 { return []int64{7, 3} }
	router := testRouter(t, Deps{
		Adapters: []AdapterInfo{
			&fakeAdapter{protocol: "data", port: 8888, stats: adapter.Stats{Accepted: 42, Shed: 2, Active: 1}},
			&fakeAdapter{protocol: "broadcast", port: 8889},
		},
		Subscribers: subscribers,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Data.Adapters, 2)
	assert.Equal(t, "data", resp.Data.Adapters[0].Protocol)
	assert.Equal(t, uint64(42), resp.Data.Adapters[0].Accepted)
	assert.Equal(t, uint64(2), resp.Data.Adapters[0].Shed)
	require.NotNil(t, resp.Data.Subscribers)
	assert.Equal(t, 2, *resp.Data.Subscribers)
}

func TestSubscribers(t *testing.T) {
	t.Parallel()

	t.Run("sorted ids", func(t *testing.T) {
		t.Parallel()

		router := testRouter(t, Deps{Subscribers: func() []int64 { return []int64{9, 1, 4} }})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribers", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data SubscribersResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []int64{1, 4, 9}, resp.Data.UserIDs)
		assert.Equal(t, 3, resp.Data.Count)
	})

	t.Run("broadcast disabled", func(t *testing.T) {
		t.Parallel()

		router := testRouter(t, Deps{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribers", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
