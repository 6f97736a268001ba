package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/cache"
)

const seenPrefix = "webhook:seen:"

// IdempotencyFilter remembers processed (message id, sender) pairs for ttl.
type IdempotencyFilter struct {
	kv  cache.Store
	ttl time.Duration
}

func NewIdempotencyFilter(kv cache.Store, ttl time.Duration) *IdempotencyFilter {
	return &IdempotencyFilter{kv: kv, ttl: ttl}
}

// Seen records the pair and reports whether it had been recorded before.
// Events without an id are never considered seen.
func (f *IdempotencyFilter) Seen(ctx context.Context, messageID, sender string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	stored, err := f.kv.SetNX(ctx, seenPrefix+sender+":"+messageID, []byte("1"), f.ttl)
	if err != nil {
		return false, fmt.Errorf("record webhook id: %w", err)
	}
	return !stored, nil
}
