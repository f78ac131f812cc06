package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rl1809/sales-ledger/internal/config"
	"github.com/rl1809/sales-ledger/internal/port"
)

// Open connects the configured backing store. The returned closer releases
// its connections.
func Open(ctx context.Context, conf config.StorageConfig) (port.TableStore, func() error, error) {
	noop := func() error { return nil }

	switch conf.Backend {
	case config.BackendMemory:
		return NewMemoryAdapter(), noop, nil

	case config.BackendCSV:
		a, err := NewCSVAdapter(conf.CSVDir)
		if err != nil {
			return nil, nil, err
		}
		return a, noop, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", conf.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		return migrated(ctx, NewMySQLAdapter(db), db)

	case config.BackendSQLite:
		if dir := filepath.Dir(conf.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := sql.Open("sqlite3", conf.SQLitePath+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return migrated(ctx, NewSQLiteAdapter(db), db)

	case config.BackendSheets:
		opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
		if conf.Sheets.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(conf.Sheets.CredentialsFile))
		}
		a, err := NewSheetsAdapter(ctx, conf.Sheets.SpreadsheetID, opts...)
		if err != nil {
			return nil, nil, err
		}
		return a, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", conf.Backend)
}

func migrated(ctx context.Context, a *SQLAdapter, db *sql.DB) (port.TableStore, func() error, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := a.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return a, db.Close, nil
}

// OpenIdempotency returns the Redis repository when an address is configured,
// the in-process one otherwise.
func OpenIdempotency(ctx context.Context, conf config.RedisConfig) (port.IdempotencyRepository, func() error, error) {
	if conf.Addr == "" {
		return NewMemoryIdempotency(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return NewRedisAdapter(rdb, conf.TTL), rdb.Close, nil
}
