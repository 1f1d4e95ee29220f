package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const DefaultQueryTimeout = 5 * time.Second

var ErrNotFound = errors.New("record not found")

type PgGoChatRepository struct {
	conn    *sql.DB
	timeout time.Duration
}

func NewPgGoChatRepository(dsn string, timeout time.Duration) (*PgGoChatRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PgGoChatRepository{conn: db, timeout: timeout}, nil
}

func (db *PgGoChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgGoChatRepository) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// withTimeout bounds every store call so no operation blocks indefinitely.
func (db *PgGoChatRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
