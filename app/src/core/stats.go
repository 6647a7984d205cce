package core

import (
	"context"
	"math"

	"obruk-backend/app/src/domain"
)

// StatsCalculator derives per-metric aggregates from the full store. Each
// call scans once and keeps no state between calls.
type StatsCalculator struct {
	reader domain.MeasurementReader
}

func NewStatsCalculator(reader domain.MeasurementReader) *StatsCalculator {
	return &StatsCalculator{reader: reader}
}

func (c *StatsCalculator) Stats(ctx context.Context) (domain.Stats, error) {
	all, err := c.reader.All(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{Count: len(all)}
	if len(all) == 0 {
		return stats, nil
	}

	var tds, temperature, moisture accumulator
	for _, m := range all {
		tds.add(m.TDS)
		temperature.add(m.Temperature)
		moisture.add(m.Moisture)
	}

	stats.TDS = tds.metricStats()
	stats.Temperature = temperature.metricStats()
	stats.Moisture = moisture.metricStats()
	return stats, nil
}

type accumulator struct {
	min, max, sum float64
	count         int
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.count++
}

// metricStats keeps min/max exact and rounds the mean to two decimals,
// half away from zero.
func (a *accumulator) metricStats() domain.MetricStats {
	if a.count == 0 {
		return domain.MetricStats{}
	}
	min := a.min
	max := a.max
	avg := round2(a.sum / float64(a.count))
	return domain.MetricStats{Min: &min, Max: &max, Avg: &avg}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
