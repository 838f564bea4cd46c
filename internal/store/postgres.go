package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/linkguard/internal/links"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/serroba/linkguard/internal/store")

const linkColumns = "id, code, real_url, owner_id, clicks, created_at, deleted, deleted_at"

// PostgresStore is a PostgreSQL implementation of links.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool opens a tuned connection pool and verifies connectivity.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, err
	}

	return pool, nil
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Query(ctx context.Context, filter links.Filter) ([]*links.Link, error) {
	ctx, span := startSpan(ctx, "SELECT")
	defer span.End()

	var (
		where []string
		args  []any
	)

	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	if len(filter.Codes) > 0 {
		args = append(args, filter.Codes)
		where = append(where, fmt.Sprintf("code = ANY($%d)", len(args)))
	}

	if len(filter.OwnerIDs) > 0 {
		args = append(args, filter.OwnerIDs)
		where = append(where, fmt.Sprintf("owner_id = ANY($%d)", len(args)))
	}

	query := "SELECT " + linkColumns + " FROM links"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY id"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, err)
	}

	records, err := pgx.CollectRows(rows, scanLink)
	if err != nil {
		return nil, recordErr(span, err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(records)))

	return records, nil
}

func (p *PostgresStore) Insert(ctx context.Context, link *links.Link) error {
	ctx, span := startSpan(ctx, "INSERT")
	defer span.End()

	query := `
		INSERT INTO links (code, real_url, owner_id, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		link.Code,
		link.RealURL,
		link.OwnerID,
		link.Clicks,
		link.CreatedAt,
	).Scan(&link.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return links.ErrCodeExists
		}

		return recordErr(span, err)
	}

	return nil
}

func (p *PostgresStore) UpdateByID(ctx context.Context, id int64, patch links.Patch) (*links.Link, error) {
	ctx, span := startSpan(ctx, "UPDATE")
	defer span.End()

	var (
		sets []string
		args []any
	)

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Code != nil {
		set("code", *patch.Code)
	}

	if patch.RealURL != nil {
		set("real_url", *patch.RealURL)
	}

	if patch.Clicks != nil {
		set("clicks", *patch.Clicks)
	}

	if patch.Deleted != nil {
		set("deleted", *patch.Deleted)
	}

	if patch.DeletedAt != nil {
		set("deleted_at", *patch.DeletedAt)
	}

	var query string

	args = append(args, id)

	if len(sets) == 0 {
		query = fmt.Sprintf("SELECT %s FROM links WHERE id = $%d", linkColumns, len(args))
	} else {
		query = fmt.Sprintf("UPDATE links SET %s WHERE id = $%d RETURNING %s",
			strings.Join(sets, ", "), len(args), linkColumns)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, err)
	}

	link, err := pgx.CollectExactlyOneRow(rows, scanLink)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, links.ErrNotFound
		}

		if isUniqueViolation(err) {
			return nil, links.ErrCodeExists
		}

		return nil, recordErr(span, err)
	}

	return link, nil
}

func (p *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := startSpan(ctx, "DELETE")
	defer span.End()

	tag, err := p.pool.Exec(ctx, "DELETE FROM links WHERE id = $1", id)
	if err != nil {
		return recordErr(span, err)
	}

	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Shutdown closes the pool.
func (p *PostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func scanLink(row pgx.CollectableRow) (*links.Link, error) {
	var l links.Link

	err := row.Scan(
		&l.ID,
		&l.Code,
		&l.RealURL,
		&l.OwnerID,
		&l.Clicks,
		&l.CreatedAt,
		&l.Deleted,
		&l.DeletedAt,
	)

	return &l, err
}

func startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "db."+strings.ToLower(operation),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", "links"),
		),
	)
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ links.Repository = (*PostgresStore)(nil)
