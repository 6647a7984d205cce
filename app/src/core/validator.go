package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/shared/constants"
)

// Accepted timestamp layouts. RFC3339 is canonical; the bare layouts cover
// sensor firmware that omits the zone and are interpreted as UTC.
var timestampLayouts = []string{
	constants.TimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseMeasurement turns an untyped inbound payload into a well-formed
// Measurement. Validation is exhaustive: every invalid field is reported, not
// just the first. A missing timestamp defaults to now; a present but
// unparsable one is an error.
func ParseMeasurement(payload map[string]any, now time.Time) (domain.Measurement, *domain.ValidationError) {
	verr := &domain.ValidationError{}

	tds := numericField(payload, "tds", constants.TDSMin, constants.TDSMax, verr)
	temperature := numericField(payload, "temperature", constants.TemperatureMin, constants.TemperatureMax, verr)
	moisture := numericField(payload, "moisture", constants.MoistureMin, constants.MoistureMax, verr)

	timestamp := now.UTC()
	if raw, ok := payload["timestamp"]; ok && raw != nil {
		switch v := raw.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				parsed, err := parseTimestamp(v)
				if err != nil {
					verr.Add("timestamp", "must be a valid RFC3339 date-time")
				} else {
					timestamp = parsed.UTC()
				}
			}
		default:
			verr.Add("timestamp", "must be a string in RFC3339 format")
		}
	}

	if verr.HasErrors() {
		return domain.Measurement{}, verr
	}

	return domain.Measurement{
		TDS:         tds,
		Temperature: temperature,
		Moisture:    moisture,
		Timestamp:   timestamp,
	}, nil
}

func numericField(payload map[string]any, field string, min, max float64, verr *domain.ValidationError) float64 {
	raw, ok := payload[field]
	if !ok || raw == nil {
		verr.Add(field, "is required")
		return 0
	}

	value, err := coerceFloat(raw)
	if err != nil {
		verr.Add(field, "must be a number")
		return 0
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		verr.Add(field, "must be a finite number")
		return 0
	}

	if value < min || value > max {
		verr.Add(field, fmt.Sprintf("must be between %g and %g", min, max))
		return 0
	}

	return value
}

func coerceFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
