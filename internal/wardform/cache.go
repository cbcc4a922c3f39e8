package wardform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FormCache is a short-lived read-through cache in front of form lookups.
// It exists to absorb repeated reads of the same shift form during a single
// editing session; every write to a key must invalidate it immediately.
// All methods are nil-safe so the repository works without Redis.
type FormCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFormCache instantiates the cache helper.
func NewFormCache(client *redis.Client, ttl time.Duration) *FormCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FormCache{client: client, ttl: ttl}
}

func formCacheKey(wardID, date string, shift Shift) string {
	return fmt.Sprintf("wardform:%s:%s:%s", wardID, date, shift)
}

// Get returns the cached form for a ward+date+shift, or ErrNotFound-free
// miss signalled by ok=false.
func (c *FormCache) Get(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, bool) {
	if c == nil || c.client == nil {
		return ShiftForm{}, false
	}
	payload, err := c.client.Get(ctx, formCacheKey(wardID, date, shift)).Bytes()
	if err != nil {
		return ShiftForm{}, false
	}
	var form ShiftForm
	if err := json.Unmarshal(payload, &form); err != nil {
		return ShiftForm{}, false
	}
	return form, true
}

// Set stores the form under its ward+date+shift key with the cache TTL.
func (c *FormCache) Set(ctx context.Context, form ShiftForm) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(form)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, formCacheKey(form.WardID, form.Date, form.Shift), payload, c.ttl).Err()
}

// Invalidate drops the cached entry for a ward+date+shift.
func (c *FormCache) Invalidate(ctx context.Context, wardID, date string, shift Shift) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Del(ctx, formCacheKey(wardID, date, shift)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
