package wardform

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*FormCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFormCache(client, time.Minute), mr
}

func TestFormCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	form := ShiftForm{
		ID: "WARD1_m_final_d20250101_t080000", WardID: "WARD1",
		Date: "2025-01-01", Shift: ShiftMorning, Status: StatusFinal,
		ComputedCensus: 14, PatientCensus: 14, Nurses: 3,
	}
	cache.Set(ctx, form)

	got, ok := cache.Get(ctx, "WARD1", "2025-01-01", ShiftMorning)
	require.True(t, ok)
	require.Equal(t, form.ID, got.ID)
	require.Equal(t, 14, got.ComputedCensus)

	_, ok = cache.Get(ctx, "WARD1", "2025-01-01", ShiftNight)
	require.False(t, ok)
}

func TestFormCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	form := ShiftForm{WardID: "WARD1", Date: "2025-01-01", Shift: ShiftMorning, Status: StatusDraft}
	cache.Set(ctx, form)
	require.NoError(t, cache.Invalidate(ctx, "WARD1", "2025-01-01", ShiftMorning))

	_, ok := cache.Get(ctx, "WARD1", "2025-01-01", ShiftMorning)
	require.False(t, ok)
}

func TestFormCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, ShiftForm{WardID: "WARD1", Date: "2025-01-01", Shift: ShiftMorning})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "WARD1", "2025-01-01", ShiftMorning)
	require.False(t, ok)
}

func TestFormCacheNilSafe(t *testing.T) {
	var cache *FormCache
	ctx := context.Background()

	cache.Set(ctx, ShiftForm{WardID: "W", Date: "2025-01-01", Shift: ShiftMorning})
	_, ok := cache.Get(ctx, "W", "2025-01-01", ShiftMorning)
	require.False(t, ok)
	require.NoError(t, cache.Invalidate(ctx, "W", "2025-01-01", ShiftMorning))
}
