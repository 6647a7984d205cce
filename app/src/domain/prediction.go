package domain

// ForecastPoint is one predicted reading returned by the AI service.
type ForecastPoint struct {
	TDS         float64 `json:"tds"`
	Temperature float64 `json:"temperature"`
	Moisture    float64 `json:"moisture"`
}

// Forecast is the AI service response for a measurement sequence. The shape
// is owned by the upstream model; fields beyond these are ignored.
type Forecast struct {
	Predictions  []ForecastPoint `json:"predictions"`
	AnomalyScore float64         `json:"anomaly_score"`
	Mode         string          `json:"mode,omitempty"`
}

// AIHealth describes the reachability and mode of the AI service. A probe
// failure yields Healthy=false with the transport error, never a raw error.
type AIHealth struct {
	Healthy        bool   `json:"healthy"`
	Service        string `json:"service,omitempty"`
	Status         string `json:"status,omitempty"`
	Mode           string `json:"mode,omitempty"`
	SequenceLength int    `json:"sequence_length,omitempty"`
	ForecastSteps  int    `json:"forecast_steps,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BackendHealth reports the local process and its storage backend.
type BackendHealth struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// HealthReport merges local health with the AI probe result.
type HealthReport struct {
	Backend BackendHealth `json:"backend"`
	AI      AIHealth      `json:"ai"`
}

// IngestResult is the outcome of one write: the stored measurement plus the
// optional forecast. A failed forecast never rolls the write back; it is
// reported through PredictionError instead.
type IngestResult struct {
	Measurement     Measurement
	Prediction      *Forecast
	PredictionError string
}
