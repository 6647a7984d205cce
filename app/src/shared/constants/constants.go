package constants

import "time"

const (
	// TimeFormat defines the canonical timestamp format used across transports.
	TimeFormat = time.RFC3339
)

// Physical ranges accepted for inbound sensor readings. Bounds are inclusive.
const (
	TDSMin = 0.0
	TDSMax = 5000.0

	TemperatureMin = -20.0
	TemperatureMax = 60.0

	MoistureMin = 0.0
	MoistureMax = 1000.0
)
