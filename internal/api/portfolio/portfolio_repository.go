package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

var _ PortfolioRepo = (*PostgresPortfolioRepo)(nil)

// PortfolioRepo persists user portfolios. Holdings are replaced wholesale
// on update; the jsonb column is the source of truth for positions.
type PortfolioRepo interface {
	ListPortfolios(ctx context.Context, userID uuid.UUID) ([]Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID uuid.UUID) (*Portfolio, error)
	CreatePortfolio(ctx context.Context, userID uuid.UUID, name string) (*Portfolio, error)
	UpdateHoldings(ctx context.Context, portfolioID uuid.UUID, req UpdateHoldingsRequest) (*Portfolio, error)
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresPortfolioRepo struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewPostgresPortfolioRepo(pgpool DBPool, logger *slog.Logger) *PostgresPortfolioRepo {
	return &PostgresPortfolioRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const portfolioColumns = `id, user_id, name, holdings, total_value, daily_change, created_at, updated_at`

func scanPortfolio(row pgx.Row) (*Portfolio, error) {
	var p Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Holdings,
		&p.TotalValue, &p.DailyChange, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPortfolioRepo) ListPortfolios(ctx context.Context, userID uuid.UUID) ([]Portfolio, error) {
	ctx, span := otel.Tracer("PortfolioRepo").Start(ctx, "ListPortfolios", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "portfolios"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+portfolioColumns+" FROM portfolios WHERE user_id = $1 ORDER BY created_at ASC",
		userID)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("list portfolios: query failed: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Holdings,
			&p.TotalValue, &p.DailyChange, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list portfolios: scan failed: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list portfolios: rows error: %w", err)
	}
	return portfolios, nil
}

func (r *PostgresPortfolioRepo) GetPortfolio(ctx context.Context, portfolioID uuid.UUID) (*Portfolio, error) {
	ctx, span := otel.Tracer("PortfolioRepo").Start(ctx, "GetPortfolio", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "portfolios"),
	))
	defer span.End()

	p, err := scanPortfolio(r.pgpool.QueryRow(ctx,
		"SELECT "+portfolioColumns+" FROM portfolios WHERE id = $1", portfolioID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s not found: %w", portfolioID, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("get portfolio: query failed: %w", err)
	}
	return p, nil
}

func (r *PostgresPortfolioRepo) CreatePortfolio(ctx context.Context, userID uuid.UUID, name string) (*Portfolio, error) {
	ctx, span := otel.Tracer("PortfolioRepo").Start(ctx, "CreatePortfolio", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "portfolios"),
	))
	defer span.End()

	p, err := scanPortfolio(r.pgpool.QueryRow(ctx,
		`INSERT INTO portfolios (user_id, name) VALUES ($1, $2)
         RETURNING `+portfolioColumns,
		userID, name))
	if err != nil {
		span.SetStatus(codes.Error, "insert failed")
		span.RecordError(err)
		return nil, fmt.Errorf("create portfolio: db insert failed: %w", err)
	}

	r.logger.InfoContext(ctx, "Portfolio created",
		slog.String("portfolioID", p.ID.String()), slog.String("userID", userID.String()))
	return p, nil
}

func (r *PostgresPortfolioRepo) UpdateHoldings(ctx context.Context, portfolioID uuid.UUID, req UpdateHoldingsRequest) (*Portfolio, error) {
	ctx, span := otel.Tracer("PortfolioRepo").Start(ctx, "UpdateHoldings", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "portfolios"),
		attribute.Int("portfolio.holding_count", len(req.Holdings)),
	))
	defer span.End()

	p, err := scanPortfolio(r.pgpool.QueryRow(ctx,
		`UPDATE portfolios
         SET holdings = $2, total_value = $3, daily_change = $4, updated_at = NOW()
         WHERE id = $1
         RETURNING `+portfolioColumns,
		portfolioID, req.Holdings, req.TotalValue, req.DailyChange))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s not found: %w", portfolioID, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "update failed")
		span.RecordError(err)
		return nil, fmt.Errorf("update holdings: db update failed: %w", err)
	}
	return p, nil
}
