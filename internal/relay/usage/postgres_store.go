package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresStore implements Store using a Postgres table with an
// upsert-on-conflict increment, so a racing pair of requests against
// the same key serializes through the database rather than through
// an in-process lock.
type PostgresStore struct {
	db         *sql.DB
	ownsDB     bool
	tableName  string
}

// NewPostgresStore opens its own connection pool to connectionString.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db, ownsDB: true, tableName: "usage_counters"}
	if err := store.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB builds a PostgresStore over an existing pool,
// letting it share a connection pool with other Postgres-backed components.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db, ownsDB: false, tableName: "usage_counters"}
	if err := store.createTable(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) createTable() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT NOT NULL,
			fee_payer TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, fee_payer)
		)`, s.tableName)
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create usage table: %w", err)
	}
	return nil
}

// IncrementAndGet implements Store with a single upsert statement: if
// the existing row's window has expired the count resets to 1 in a
// fresh window, otherwise it increments atomically under the row lock.
func (s *PostgresStore) IncrementAndGet(ctx context.Context, key Key, window time.Duration) (uint64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, fee_payer, window_start, count)
		VALUES ($1, $2, now(), 1)
		ON CONFLICT (user_id, fee_payer) DO UPDATE SET
			count = CASE
				WHEN %s.window_start <= now() - make_interval(secs => $3) THEN 1
				ELSE %s.count + 1
			END,
			window_start = CASE
				WHEN %s.window_start <= now() - make_interval(secs => $3) THEN now()
				ELSE %s.window_start
			END
		RETURNING count`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	var count uint64
	err := s.db.QueryRowContext(ctx, query, key.UserID, key.FeePayer, window.Seconds()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}
	return count, nil
}

// Close closes the underlying pool, if this store owns it.
func (s *PostgresStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
