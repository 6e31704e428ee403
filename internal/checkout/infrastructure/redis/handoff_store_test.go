package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	goredis "github.com/redis/go-redis/v9"

	cartdomain "github.com/avelez/storefront/internal/cart/domain"
)

func getRedisClient(t *testing.T) *goredis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func handoffSnapshot() cartdomain.CartSnapshot {
	return cartdomain.CartSnapshot{
		CartID: "cart-1",
		Lines: []cartdomain.CartLine{
			{
				ProductID: "p1",
				Product:   cartdomain.Product{ID: "p1", UnitPrice: decimal.RequireFromString("10.00")},
				Quantity:  2,
			},
			{
				ProductID: "p2",
				Product:   cartdomain.Product{ID: "p2", UnitPrice: decimal.RequireFromString("4.50")},
				Quantity:  1,
			},
		},
		Version: 5,
	}
}

func TestHandoffStore_PeekThenDiscard(t *testing.T) {
	store := NewHandoffStore(getRedisClient(t), time.Minute)
	ctx := context.Background()
	token := "test-token-" + t.Name()

	if err := store.Save(ctx, token, handoffSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, ok, err := store.Peek(ctx, token)
	if err != nil || !ok {
		t.Fatalf("Peek failed: ok=%v err=%v", ok, err)
	}
	if len(snap.Lines) != 2 || snap.Lines[1].ProductID != "p2" {
		t.Fatalf("snapshot did not round-trip: %+v", snap.Lines)
	}

	// Peek is non-destructive: a retry after a failed persist sees it again.
	if _, ok, err := store.Peek(ctx, token); err != nil || !ok {
		t.Fatalf("expected snapshot still present after peek: ok=%v err=%v", ok, err)
	}

	if err := store.Discard(ctx, token); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, ok, err := store.Peek(ctx, token); err != nil || ok {
		t.Fatalf("expected miss after discard: ok=%v err=%v", ok, err)
	}
}

func TestHandoffStore_SaveSetsTTL(t *testing.T) {
	client := getRedisClient(t)
	store := NewHandoffStore(client, 30*time.Second)
	ctx := context.Background()
	token := "test-token-" + t.Name()
	t.Cleanup(func() { client.Del(ctx, handoffKeyPrefix+token) })

	if err := store.Save(ctx, token, handoffSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ttl, err := client.TTL(ctx, handoffKeyPrefix+token).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("expected bounded TTL, got %s", ttl)
	}
}

func TestHandoffStore_PeekMissing(t *testing.T) {
	store := NewHandoffStore(getRedisClient(t), time.Minute)
	if _, ok, err := store.Peek(context.Background(), "never-saved"); err != nil || ok {
		t.Fatalf("expected clean miss: ok=%v err=%v", ok, err)
	}
}
