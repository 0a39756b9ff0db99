package repository

import (
	"context"
	"database/sql"
	"strings"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query can run
// either standalone or inside the caller's transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mysqlQueries implements Queries on top of database/sql.
type mysqlQueries struct {
	q dbtx
}

// MySQLStore is the production Store.  Row locks taken with
// SELECT ... FOR UPDATE inside InTx are what make the check-then-insert
// sequences safe across several service instances.
type MySQLStore struct {
	mysqlQueries
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{mysqlQueries: mysqlQueries{q: db}, db: db}
}

// DB exposes the underlying pool for health checks and migrations.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// InTx runs fn inside a transaction.  The transaction is rolled back
// unless fn returns nil and the commit succeeds.
func (s *MySQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlQueries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func uint64Args(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
