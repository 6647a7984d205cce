package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// PostgresStore is the row-oriented encoding of the measurement collection.
// Every append is a single atomic insert, so concurrent writers need no
// additional serialization.
type PostgresStore struct {
	db *sql.DB
}

const createMeasurementsSQL = `
CREATE TABLE IF NOT EXISTS measurements (
    id          BIGSERIAL PRIMARY KEY,
    tds         DOUBLE PRECISION NOT NULL,
    temperature DOUBLE PRECISION NOT NULL,
    moisture    DOUBLE PRECISION NOT NULL,
    ts          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS measurements_ts_idx ON measurements (ts);
`

const (
	insertMeasurementSQL = `
INSERT INTO measurements (tds, temperature, moisture, ts)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	selectAllSQL = `
SELECT id, tds, temperature, moisture, ts FROM measurements ORDER BY id ASC
`
	selectPageSQL = `
SELECT id, tds, temperature, moisture, ts FROM measurements ORDER BY id ASC LIMIT $1 OFFSET $2
`
	selectLatestSQL = `
SELECT id, tds, temperature, moisture, ts FROM measurements ORDER BY id DESC LIMIT 1
`
	selectLatestNSQL = `
SELECT id, tds, temperature, moisture, ts FROM measurements ORDER BY id DESC LIMIT $1
`
	countSQL = `SELECT COUNT(*) FROM measurements`
)

// NewPostgresStore ensures the schema exists and returns the store.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres store: db handle is required")
	}
	if _, err := db.ExecContext(ctx, createMeasurementsSQL); err != nil {
		return nil, fmt.Errorf("%w: ensure schema: %v", domain.ErrStorage, err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, m domain.Measurement) (domain.Measurement, error) {
	start := time.Now()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC()

	err := s.db.QueryRowContext(ctx, insertMeasurementSQL, m.TDS, m.Temperature, m.Moisture, m.Timestamp).Scan(&m.ID)
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("%w: insert: %v", domain.ErrStorage, err)
	}

	infra.ObserveStoreAppend(time.Since(start))
	return m, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]domain.Measurement, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: select all: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	list, err := scanMeasurements(rows)
	if err != nil {
		return nil, err
	}
	infra.ObserveStoreRead(time.Since(start))
	return list, nil
}

func (s *PostgresStore) Page(ctx context.Context, page, limit int) (domain.Page, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("%w: count: %v", domain.ErrStorage, err)
	}

	offset := (page - 1) * limit
	rows, err := s.db.QueryContext(ctx, selectPageSQL, limit, offset)
	if err != nil {
		return domain.Page{}, fmt.Errorf("%w: select page: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	items, err := scanMeasurements(rows)
	if err != nil {
		return domain.Page{}, err
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return domain.Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      items,
	}, nil
}

func (s *PostgresStore) Latest(ctx context.Context) (domain.Measurement, error) {
	var m domain.Measurement
	err := s.db.QueryRowContext(ctx, selectLatestSQL).Scan(&m.ID, &m.TDS, &m.Temperature, &m.Moisture, &m.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Measurement{}, domain.ErrNoData
	}
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("%w: select latest: %v", domain.ErrStorage, err)
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

func (s *PostgresStore) LatestN(ctx context.Context, n int) ([]domain.Measurement, error) {
	if n <= 0 {
		return []domain.Measurement{}, nil
	}

	rows, err := s.db.QueryContext(ctx, selectLatestNSQL, n)
	if err != nil {
		return nil, fmt.Errorf("%w: select latest n: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	list, err := scanMeasurements(rows)
	if err != nil {
		return nil, err
	}

	// The query returns newest first; callers expect chronological order.
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanMeasurements(rows *sql.Rows) ([]domain.Measurement, error) {
	list := []domain.Measurement{}
	for rows.Next() {
		var m domain.Measurement
		if err := rows.Scan(&m.ID, &m.TDS, &m.Temperature, &m.Moisture, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", domain.ErrStorage, err)
		}
		m.Timestamp = m.Timestamp.UTC()
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", domain.ErrStorage, err)
	}
	return list, nil
}

var _ domain.MeasurementStore = (*PostgresStore)(nil)
