package domain

import "time"

// Measurement is a single probe reading: total dissolved solids, water
// temperature and soil moisture, stamped with the acquisition time.
type Measurement struct {
	ID          int64     `json:"id,omitempty"`
	TDS         float64   `json:"tds"`
	Temperature float64   `json:"temperature"`
	Moisture    float64   `json:"moisture"`
	Timestamp   time.Time `json:"timestamp"`
}

// Page is one slice of the ordered measurement collection.
type Page struct {
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Items      []Measurement `json:"items"`
}

// BulkReport summarises one bulk upload: rows seen, rows stored and rows
// dropped by validation, with a sample of the per-row failures.
type BulkReport struct {
	Rows     int      `json:"rows"`
	Accepted int      `json:"accepted"`
	Dropped  int      `json:"dropped"`
	Errors   []string `json:"errors,omitempty"`
}
