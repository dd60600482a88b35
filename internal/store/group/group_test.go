package group

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveServesHotEntryWithoutRoundTrips(t *testing.T) {
	// No redis, no pg: a hot entry must answer before either is touched.
	s := &Store{hot: expirable.NewLRU[string, []string](8, nil, time.Minute)}
	s.hot.Add("g1", []string{"u1", "u2"})

	members, err := s.Resolve(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, members)
}

func TestMutationsDropHotEntry(t *testing.T) {
	s := &Store{
		hot: expirable.NewLRU[string, []string](8, nil, time.Minute),
		cache: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		logger: slog.New(slog.DiscardHandler),
	}
	s.hot.Add("g1", []string{"u1"})

	// Redis is unreachable; the in-process entry must be gone regardless so
	// the next resolve cannot fan out to a stale set.
	_ = s.Evict(context.Background(), "g1")
	_, ok := s.hot.Get("g1")
	assert.False(t, ok)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"u1", "u2", "u3"},
		dedupe([]string{"u1", "u2", "u1", "u3", "u2"}))
	assert.Equal(t, []string{"u1"}, dedupe([]string{"u1", "", "u1"}))
	assert.Empty(t, dedupe(nil))
}
