package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

const (
	quoteCacheTTL   = 30 * time.Second
	cacheKeyAll     = "market:all"
	cacheKeySymbol  = "market:symbol:"
	cacheSweepEvery = 5 * time.Minute
)

var _ MarketRepo = (*PostgresMarketRepo)(nil)

// MarketRepo serves market quotes. Reads go through a short-lived in-memory
// cache; quotes are snapshots already, so brief staleness is acceptable.
type MarketRepo interface {
	ListQuotes(ctx context.Context) ([]Quote, error)
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	UpsertQuote(ctx context.Context, req UpsertQuoteRequest) (*Quote, error)
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresMarketRepo struct {
	logger *slog.Logger
	pgpool DBPool
	cache  *cache.Cache
}

func NewPostgresMarketRepo(pgpool DBPool, logger *slog.Logger) *PostgresMarketRepo {
	return &PostgresMarketRepo{
		logger: logger,
		pgpool: pgpool,
		cache:  cache.New(quoteCacheTTL, cacheSweepEvery),
	}
}

const quoteColumns = `id, symbol, name, price, change, change_percent, data, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.Symbol, &q.Name, &q.Price, &q.Change,
		&q.ChangePercent, &q.Data, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresMarketRepo) ListQuotes(ctx context.Context) ([]Quote, error) {
	if cached, found := r.cache.Get(cacheKeyAll); found {
		return cached.([]Quote), nil
	}

	ctx, span := otel.Tracer("MarketRepo").Start(ctx, "ListQuotes", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "market_data"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+quoteColumns+" FROM market_data ORDER BY symbol ASC")
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("list quotes: query failed: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.Symbol, &q.Name, &q.Price, &q.Change,
			&q.ChangePercent, &q.Data, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list quotes: scan failed: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quotes: rows error: %w", err)
	}

	r.cache.Set(cacheKeyAll, quotes, cache.DefaultExpiration)
	return quotes, nil
}

func (r *PostgresMarketRepo) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if cached, found := r.cache.Get(cacheKeySymbol + symbol); found {
		return cached.(*Quote), nil
	}

	ctx, span := otel.Tracer("MarketRepo").Start(ctx, "GetQuote", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "market_data"),
		attribute.String("market.symbol", symbol),
	))
	defer span.End()

	quote, err := scanQuote(r.pgpool.QueryRow(ctx,
		"SELECT "+quoteColumns+" FROM market_data WHERE symbol = $1", symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("symbol %s not found: %w", symbol, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("get quote: query failed: %w", err)
	}

	r.cache.Set(cacheKeySymbol+symbol, quote, cache.DefaultExpiration)
	return quote, nil
}

// UpsertQuote writes a snapshot and drops the affected cache entries so the
// next read sees the new price.
func (r *PostgresMarketRepo) UpsertQuote(ctx context.Context, req UpsertQuoteRequest) (*Quote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	ctx, span := otel.Tracer("MarketRepo").Start(ctx, "UpsertQuote", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "market_data"),
		attribute.String("market.symbol", symbol),
	))
	defer span.End()

	quote, err := scanQuote(r.pgpool.QueryRow(ctx,
		`INSERT INTO market_data (symbol, name, price, change, change_percent, data)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (symbol) DO UPDATE
         SET name = EXCLUDED.name, price = EXCLUDED.price, change = EXCLUDED.change,
             change_percent = EXCLUDED.change_percent, data = EXCLUDED.data, updated_at = NOW()
         RETURNING `+quoteColumns,
		symbol, req.Name, req.Price, req.Change, req.ChangePercent, req.Data))
	if err != nil {
		span.SetStatus(codes.Error, "upsert failed")
		span.RecordError(err)
		return nil, fmt.Errorf("upsert quote: db write failed: %w", err)
	}

	r.cache.Delete(cacheKeyAll)
	r.cache.Delete(cacheKeySymbol + symbol)
	return quote, nil
}
