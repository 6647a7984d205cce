package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// NewStore builds the measurement store selected by STORAGE_DRIVER. The
// returned cleanup releases the underlying handle on shutdown.
func NewStore(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.MeasurementStore, func(), error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "file":
		store, err := NewFileStore(cfg.StorageFile)
		if err != nil {
			return nil, nil, err
		}
		if logger != nil {
			logger.Printf(ctx, "using file store at %s", cfg.StorageFile)
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		dsn, err := BuildDatabaseDSN(cfg)
		if err != nil {
			return nil, nil, err
		}

		if err := WaitForDatabase(ctx, dsn, logger); err != nil {
			if logger != nil {
				logger.Printf(ctx, "database connectivity check failed: %v", err)
			}
		}

		db, err := Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		store, err := NewPostgresStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if logger != nil {
			logger.Println(ctx, "using postgres store")
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Connect opens a SQL database handle and validates it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return db, nil
}

// WaitForDatabase probes the database host with exponential backoff until it
// accepts TCP connections or the retry budget runs out.
func WaitForDatabase(ctx context.Context, dsn string, logger *infra.Logger) error {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DSN: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil
	}
	port := parsed.Port()
	if port == "" {
		port = "5432"
	}

	address := net.JoinHostPort(host, port)
	dialer := &net.Dialer{Timeout: 3 * time.Second}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		conn, dialErr := dialer.DialContext(ctx, "tcp", address)
		if dialErr == nil {
			_ = conn.Close()
			return nil
		}
		if logger != nil {
			logger.Printf(ctx, "database check attempt %d failed: %v", attempt, dialErr)
		}
		return dialErr
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 4), ctx))

	if err != nil {
		return fmt.Errorf("database not reachable at %s: %w", address, err)
	}
	return nil
}

// BuildDatabaseDSN constructs a DSN from discrete configuration values when
// not provided explicitly.
func BuildDatabaseDSN(cfg infra.Config) (string, error) {
	if cfg.DatabaseDSN != "" {
		return cfg.DatabaseDSN, nil
	}

	if cfg.DatabaseHost == "" {
		return "", errors.New("database host is required when DSN is not provided")
	}
	if cfg.DatabaseUser == "" {
		return "", errors.New("database user is required when DSN is not provided")
	}
	if cfg.DatabaseName == "" {
		return "", errors.New("database name is required when DSN is not provided")
	}

	port := cfg.DatabasePort
	if port == "" {
		port = "5432"
	}

	connectionURL := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.DatabaseHost, port),
		Path:   "/" + cfg.DatabaseName,
		User:   url.UserPassword(cfg.DatabaseUser, cfg.DatabasePassword),
	}

	query := connectionURL.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}
	connectionURL.RawQuery = query.Encode()

	return connectionURL.String(), nil
}
