package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// FileStore keeps the whole collection as one JSON array document. All
// access goes through a single mutex: the document is rewritten on every
// append, and an unserialized read-modify-write would lose records under
// concurrent writers.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore prepares a store at path. The document itself is created
// lazily on first access.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", domain.ErrStorage, dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Append stores one measurement, assigning the next sequence ID.
func (s *FileStore) Append(ctx context.Context, m domain.Measurement) (domain.Measurement, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return domain.Measurement{}, err
	}

	m.ID = int64(len(list) + 1)
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC()

	list = append(list, m)
	if err := s.save(list); err != nil {
		return domain.Measurement{}, err
	}

	infra.ObserveStoreAppend(time.Since(start))
	return m, nil
}

// All returns every record, oldest first.
func (s *FileStore) All(ctx context.Context) ([]domain.Measurement, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	infra.ObserveStoreRead(time.Since(start))
	return list, nil
}

// Page slices the ordered collection. Out-of-range pages yield empty items.
func (s *FileStore) Page(ctx context.Context, page, limit int) (domain.Page, error) {
	list, err := s.All(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	return paginate(list, page, limit), nil
}

// Latest returns the most recent record or ErrNoData.
func (s *FileStore) Latest(ctx context.Context) (domain.Measurement, error) {
	list, err := s.All(ctx)
	if err != nil {
		return domain.Measurement{}, err
	}
	if len(list) == 0 {
		return domain.Measurement{}, domain.ErrNoData
	}
	return list[len(list)-1], nil
}

// LatestN returns up to the last n records in chronological order.
func (s *FileStore) LatestN(ctx context.Context, n int) ([]domain.Measurement, error) {
	list, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []domain.Measurement{}, nil
	}
	if n < len(list) {
		list = list[len(list)-n:]
	}
	return list, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load()
	return err
}

func (s *FileStore) Close() error {
	return nil
}

// load reads the document, creating an empty one when missing.
func (s *FileStore) load() ([]domain.Measurement, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
		return []domain.Measurement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, s.path, err)
	}

	var list []domain.Measurement
	if len(data) > 0 {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStorage, s.path, err)
		}
	}
	if list == nil {
		list = []domain.Measurement{}
	}
	return list, nil
}

// save rewrites the document atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *FileStore) save(list []domain.Measurement) error {
	if list == nil {
		list = []domain.Measurement{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrStorage, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".measurements-*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", domain.ErrStorage, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: close %s: %v", domain.ErrStorage, tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStorage, s.path, err)
	}
	return nil
}

// paginate computes one page over the in-memory collection:
// offset (page-1)*limit, totalPages = max(1, ceil(total/limit)).
func paginate(list []domain.Measurement, page, limit int) domain.Page {
	total := len(list)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	items := []domain.Measurement{}
	start := (page - 1) * limit
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		items = append(items, list[start:end]...)
	}

	return domain.Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      items,
	}
}

var _ domain.MeasurementStore = (*FileStore)(nil)
