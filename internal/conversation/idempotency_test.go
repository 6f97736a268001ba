package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/rental-messaging/internal/cache"
)

func TestIdempotencyFilter(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backends := map[string]cache.Store{
		"memory": cache.NewMemoryCache(),
		"redis":  cache.NewRedisCache(rdb, "test:"),
	}

	for name, kv := range backends {
		t.Run(name, func(t *testing.T) {
			f := NewIdempotencyFilter(kv, time.Hour)
			ctx := context.Background()

			seen, err := f.Seen(ctx, "wamid.1", "966501234567")
			if err != nil || seen {
				t.Fatalf("expected first sighting, got seen=%v err=%v", seen, err)
			}
			seen, err = f.Seen(ctx, "wamid.1", "966501234567")
			if err != nil || !seen {
				t.Fatalf("expected duplicate, got seen=%v err=%v", seen, err)
			}
			if seen, _ := f.Seen(ctx, "wamid.1", "971501234567"); seen {
				t.Fatalf("expected other sender to be distinct")
			}
			if seen, _ := f.Seen(ctx, "", "966501234567"); seen {
				t.Fatalf("expected empty id never seen")
			}
			if seen, _ := f.Seen(ctx, "", "966501234567"); seen {
				t.Fatalf("expected empty id never seen")
			}
		})
	}
}

func TestIdempotencyFilter_RedisTTL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := NewIdempotencyFilter(cache.NewRedisCache(rdb, "test:"), time.Minute)
	ctx := context.Background()

	if seen, _ := f.Seen(ctx, "wamid.9", "966501234567"); seen {
		t.Fatalf("expected first sighting")
	}
	mr.FastForward(2 * time.Minute)
	if seen, _ := f.Seen(ctx, "wamid.9", "966501234567"); seen {
		t.Fatalf("expected key to expire")
	}
}
