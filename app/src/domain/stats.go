package domain

// MetricStats holds the extremes and rounded mean of one metric. Nil fields
// mark the absence of data; an empty store must not report zeros.
type MetricStats struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	Avg *float64 `json:"avg"`
}

// Stats aggregates every stored measurement per metric.
type Stats struct {
	Count       int         `json:"count"`
	TDS         MetricStats `json:"tds"`
	Temperature MetricStats `json:"temperature"`
	Moisture    MetricStats `json:"moisture"`
}
