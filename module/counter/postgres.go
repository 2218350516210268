package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxIface *pgxpool.Pool / *pgx.Conn / pgx.Tx 都满足
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore 一张 counters 表，name 为主键
type PostgresStore struct {
	db    PgxIface
	table string

	loadSQL   string
	insertSQL string
	updateSQL string
}

func NewPostgresStore(db PgxIface, table string) *PostgresStore {
	if table == "" {
		table = "counters"
	}
	t := pgx.Identifier{table}.Sanitize()
	return &PostgresStore{
		db:      db,
		table:   t,
		loadSQL: fmt.Sprintf(`SELECT last_seq FROM %s WHERE name = $1`, t),
		insertSQL: fmt.Sprintf(`INSERT INTO %[1]s (name, last_seq) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET last_seq = EXCLUDED.last_seq, updated_at = now()
WHERE %[1]s.last_seq = 0`, t),
		updateSQL: fmt.Sprintf(`UPDATE %s SET last_seq = $3, updated_at = now() WHERE name = $1 AND last_seq = $2`, t),
	}
}

// EnsureSchema 建表（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name       TEXT PRIMARY KEY,
	last_seq   BIGINT NOT NULL DEFAULT 0 CHECK (last_seq >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table))
	return err
}

func (s *PostgresStore) Load(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRow(ctx, s.loadSQL, name).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// CompareAndSwap READ COMMITTED 下 UPDATE 会在拿到行锁后重新求值 WHERE，条件更新即 CAS
func (s *PostgresStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if prev == 0 {
		tag, err = s.db.Exec(ctx, s.insertSQL, name, next)
	} else {
		tag, err = s.db.Exec(ctx, s.updateSQL, name, prev, next)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "40001" { // serialization_failure
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
