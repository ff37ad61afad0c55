package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreboardBody = `{
  "games": [
    {"game": {
      "gameID": "100",
      "startTimeEpoch": "1762473600",
      "gameState": "final",
      "currentPeriod": "FINAL",
      "finalMessage": "FINAL",
      "contestClock": "0:00",
      "home": {"score": "81", "winner": true, "names": {"short": "Duke"}, "conferences": [{"conferenceSeo": "acc"}]},
      "away": {"score": "70", "winner": false, "rank": "12", "names": {"short": "Kansas"}, "conferences": [{"conferenceSeo": "big-12"}]}
    }},
    {"game": {"gameID": "101", "home": {"names": {"short": "Solo"}}}}
  ]
}`

func newTestClient(url string, retries int) *Client {
	return NewClient(Options{
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	})
}

func TestClient_Scoreboard(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Write([]byte(scoreboardBody))
	}))
	defer srv.Close()

	games, err := newTestClient(srv.URL, 0).Scoreboard(context.Background(), "2025/11/06")
	require.NoError(t, err)

	assert.Equal(t, "/scoreboard/basketball-men/d1/2025/11/06/all-conf", <-paths)
	require.Len(t, games, 1)
	assert.Equal(t, "id:100", games[0].Key)
	assert.Equal(t, "Duke", games[0].Home.Name)
	require.NotNil(t, games[0].Away.Rank)
	assert.Equal(t, 12, *games[0].Away.Rank)
}

func TestClient_ScoreboardMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"games": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Scoreboard(context.Background(), "2025/11/06")
	assert.Error(t, err)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Scoreboard(context.Background(), "2025/07/04")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(scoreboardBody))
		}
	}))
	defer srv.Close()

	games, err := newTestClient(srv.URL, 2).Scoreboard(context.Background(), "2025/11/06")
	require.NoError(t, err)
	assert.Len(t, games, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).Scoreboard(context.Background(), "2025/11/06")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Rankings(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RequestSpacing(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.Write([]byte(`{"games": []}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, MinRequestInterval: 40 * time.Millisecond})
	for i := 0; i < 3; i++ {
		_, err := c.Scoreboard(context.Background(), "2025/11/06")
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[0]), 70*time.Millisecond)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, 3).Scoreboard(ctx, "2025/11/06")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Rankings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rankings/basketball-men/d1/associated-press", r.URL.Path)
		w.Write([]byte(`{"data": [{"RANK": "1", "SCHOOL": "Houston"}, {"RANK": "2", "SCHOOL": "Iowa State"}]}`))
	}))
	defer srv.Close()

	ranks, err := newTestClient(srv.URL, 0).Rankings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"houston": 1, "iowa st.": 2}, ranks)
}

// memoryCache is an in-process Cache for tests
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	m.sets++
	return nil
}

func TestClient_RankingsCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"rank": 3, "school": "Duke"}]`))
	}))
	defer srv.Close()

	cache := &memoryCache{}
	c := newTestClient(srv.URL, 0).WithRankingsCache(cache, time.Hour)

	for i := 0; i < 2; i++ {
		ranks, err := c.Rankings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"duke": 3}, ranks)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, cache.sets)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	assert.InDelta(t, float64(10*time.Second), float64(parseRetryAfter(future)), float64(2*time.Second))
}

func TestBackoff(t *testing.T) {
	c := NewClient(Options{RetryDelay: 100 * time.Millisecond})

	d := c.backoff(2, 0)
	assert.GreaterOrEqual(t, d, 400*time.Millisecond)
	assert.Less(t, d, 650*time.Millisecond)

	d = c.backoff(0, 5*time.Second)
	assert.GreaterOrEqual(t, d, 5*time.Second)

	d = c.backoff(10, time.Hour)
	assert.Less(t, d, maxBackoff+time.Second)
}
