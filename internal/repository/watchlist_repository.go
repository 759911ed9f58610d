package repository

import (
	"context"
	"encoding/json"
	"sort"

	"life-assistant-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// WatchlistRepository stores each user's tracked stocks in a redis hash
// keyed watchlist:<userID>, field = stock code. HSetNX/HDel give the
// unique-(user, code) add/remove semantics at the single-record level.
type WatchlistRepository struct {
	client *redis.Client
	tracer trace.Tracer
}

type watchlistValue struct {
	StockName string `json:"stock_name"`
	UserName  string `json:"user_name"`
}

func NewWatchlistRepository(client *redis.Client, tracer trace.Tracer) *WatchlistRepository {
	return &WatchlistRepository{client: client, tracer: tracer}
}

func watchlistKey(userID string) string {
	return "watchlist:" + userID
}

// Add inserts the entry and reports whether it was newly added. An existing
// (user, code) pair is left untouched.
func (r *WatchlistRepository) Add(ctx context.Context, e domain.WatchlistEntry) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "watchlist-repo.add")
	defer span.End()

	raw, err := json.Marshal(watchlistValue{StockName: e.StockName, UserName: e.UserName})
	if err != nil {
		return false, err
	}
	return r.client.HSetNX(ctx, watchlistKey(e.UserID), e.StockCode, raw).Result()
}

// Remove deletes the entry and reports whether it existed.
func (r *WatchlistRepository) Remove(ctx context.Context, userID, stockCode string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "watchlist-repo.remove")
	defer span.End()

	n, err := r.client.HDel(ctx, watchlistKey(userID), stockCode).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns the user's entries ordered by stock code.
func (r *WatchlistRepository) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	ctx, span := r.tracer.Start(ctx, "watchlist-repo.list")
	defer span.End()

	fields, err := r.client.HGetAll(ctx, watchlistKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.WatchlistEntry, 0, len(fields))
	for code, raw := range fields {
		var v watchlistValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		entries = append(entries, domain.WatchlistEntry{
			UserID:    userID,
			UserName:  v.UserName,
			StockCode: code,
			StockName: v.StockName,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].StockCode < entries[j].StockCode })
	return entries, nil
}
