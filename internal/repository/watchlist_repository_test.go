package repository

import (
	"context"
	"testing"

	"life-assistant-bot/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

func newWatchlistRepo(t *testing.T) *WatchlistRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWatchlistRepository(client, trace.NewNoopTracerProvider().Tracer("test"))
}

func TestWatchlistAddTwiceKeepsOneEntry(t *testing.T) {
	repo := newWatchlistRepo(t)
	ctx := context.Background()

	entry := domain.WatchlistEntry{UserID: "U1", UserName: "小明", StockCode: "2330", StockName: "台積電"}

	added, err := repo.Add(ctx, entry)
	if err != nil || !added {
		t.Fatalf("first add failed: %v, %v", added, err)
	}

	added, err = repo.Add(ctx, entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added {
		t.Fatal("second add of the same (user, code) must report already present")
	}

	entries, err := repo.List(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	if entries[0].StockName != "台積電" || entries[0].UserName != "小明" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestWatchlistRemoveMissingIsNoop(t *testing.T) {
	repo := newWatchlistRepo(t)
	ctx := context.Background()

	removed, err := repo.Remove(ctx, "U1", "2330")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("removing an absent entry must report not found")
	}
}

func TestWatchlistAddRemoveRoundTrip(t *testing.T) {
	repo := newWatchlistRepo(t)
	ctx := context.Background()

	if _, err := repo.Add(ctx, domain.WatchlistEntry{UserID: "U1", StockCode: "2330", StockName: "台積電"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	removed, err := repo.Remove(ctx, "U1", "2330")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	entries, err := repo.List(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty watchlist, got %d entries", len(entries))
	}
}

func TestWatchlistIsolatesUsers(t *testing.T) {
	repo := newWatchlistRepo(t)
	ctx := context.Background()

	if _, err := repo.Add(ctx, domain.WatchlistEntry{UserID: "U1", StockCode: "2330", StockName: "台積電"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Add(ctx, domain.WatchlistEntry{UserID: "U2", StockCode: "2412", StockName: "中華電"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := repo.List(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].StockCode != "2330" {
		t.Fatalf("unexpected entries for U1: %+v", entries)
	}
}

func TestWatchlistListOrderedByCode(t *testing.T) {
	repo := newWatchlistRepo(t)
	ctx := context.Background()

	for _, e := range []domain.WatchlistEntry{
		{UserID: "U1", StockCode: "2412", StockName: "中華電"},
		{UserID: "U1", StockCode: "2330", StockName: "台積電"},
	} {
		if _, err := repo.Add(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := repo.List(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].StockCode != "2330" || entries[1].StockCode != "2412" {
		t.Fatalf("expected code order, got %+v", entries)
	}
}
