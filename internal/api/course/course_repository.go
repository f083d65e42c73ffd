package course

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

var _ CourseRepo = (*PostgresCourseRepo)(nil)

// CourseRepo persists the education catalog.
type CourseRepo interface {
	ListCourses(ctx context.Context) ([]Course, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error)
	CreateCourse(ctx context.Context, req CreateCourseRequest) (*Course, error)
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresCourseRepo struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewPostgresCourseRepo(pgpool DBPool, logger *slog.Logger) *PostgresCourseRepo {
	return &PostgresCourseRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const courseColumns = `id, title, description, level, duration, lessons, image_url, content, created_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Duration,
		&c.Lessons, &c.ImageURL, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCourseRepo) ListCourses(ctx context.Context) ([]Course, error) {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "ListCourses", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "courses"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+courseColumns+" FROM courses ORDER BY created_at ASC")
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("list courses: query failed: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.Duration,
			&c.Lessons, &c.ImageURL, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list courses: scan failed: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list courses: rows error: %w", err)
	}
	return courses, nil
}

func (r *PostgresCourseRepo) GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error) {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "GetCourse", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "courses"),
	))
	defer span.End()

	course, err := scanCourse(r.pgpool.QueryRow(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id = $1", courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("course %s not found: %w", courseID, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("get course: query failed: %w", err)
	}
	return course, nil
}

func (r *PostgresCourseRepo) CreateCourse(ctx context.Context, req CreateCourseRequest) (*Course, error) {
	ctx, span := otel.Tracer("CourseRepo").Start(ctx, "CreateCourse", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "courses"),
	))
	defer span.End()

	course, err := scanCourse(r.pgpool.QueryRow(ctx,
		`INSERT INTO courses (title, description, level, duration, lessons, image_url, content)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+courseColumns,
		req.Title, req.Description, req.Level, req.Duration, req.Lessons, req.ImageURL, req.Content))
	if err != nil {
		span.SetStatus(codes.Error, "insert failed")
		span.RecordError(err)
		return nil, fmt.Errorf("create course: db insert failed: %w", err)
	}

	r.logger.InfoContext(ctx, "Course created",
		slog.String("courseID", course.ID.String()), slog.String("title", course.Title))
	return course, nil
}
