package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadyExists is returned when a descriptor with the same key was
// already recorded. Keys are random, so this points at a key generator bug.
var ErrAlreadyExists = errors.New("media already exists")

// PostgresRepository stores descriptors in the media table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository on the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Put inserts a descriptor. Descriptors are immutable, so an existing key is
// reported as ErrAlreadyExists rather than overwritten.
func (r *PostgresRepository) Put(ctx context.Context, m Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	q := r.qb().Insert("media").
		Columns("key", "size", "name", "mimetype", "created_at").
		Values(m.Key, m.Size, m.Name, m.MimeType, m.CreatedAt)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert media: %w", err)
	}

	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert media %q: %w", m.Key, err)
	}
	return nil
}

// Get fetches the descriptor for key.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Media, error) {
	q := r.qb().Select("key", "size", "name", "mimetype", "created_at").
		From("media").
		Where(sq.Eq{"key": key})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select media: %w", err)
	}

	m := &Media{}
	err = r.db.QueryRow(ctx, sqlStr, args...).
		Scan(&m.Key, &m.Size, &m.Name, &m.MimeType, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media %q: %w", key, err)
	}
	return m, nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
