package domain

import (
	"time"
)

// MissingSentinel is the raw value stations report when no measurement was
// taken. It is distinct from a true zero reading and must never leak into
// converted values or aggregates.
const MissingSentinel = -9999

// DateLayout is the wire format for dates in station files.
const DateLayout = "20060102"

// Observation is one daily record from a station file. Numeric fields hold
// the raw values as reported: temperatures in tenths of a degree Celsius,
// precipitation in tenths of a millimeter, with MissingSentinel for gaps.
// Conversion to physical units happens at read time via the accessor
// methods, never at storage time.
type Observation struct {
	StationID     string    `json:"station_id"`
	Date          time.Time `json:"date"` // day precision, UTC
	MaxTemp       int       `json:"max_temp"`
	MinTemp       int       `json:"min_temp"`
	Precipitation int       `json:"precipitation"`
	CreatedAt     time.Time `json:"created_at"`
}

// Year returns the calendar year the observation belongs to.
func (o Observation) Year() int {
	return o.Date.Year()
}

// MaxTempCelsius converts the raw max temperature to degrees Celsius.
// Returns nil when the value is the missing sentinel.
func (o Observation) MaxTempCelsius() *float64 {
	return tenthsToUnit(o.MaxTemp)
}

// MinTempCelsius converts the raw min temperature to degrees Celsius.
// Returns nil when the value is the missing sentinel.
func (o Observation) MinTempCelsius() *float64 {
	return tenthsToUnit(o.MinTemp)
}

// PrecipitationCM converts the raw precipitation (tenths of millimeters) to
// centimeters. Returns nil when the value is the missing sentinel.
func (o Observation) PrecipitationCM() *float64 {
	if o.Precipitation == MissingSentinel {
		return nil
	}
	v := float64(o.Precipitation) / 100.0
	return &v
}

func tenthsToUnit(raw int) *float64 {
	if raw == MissingSentinel {
		return nil
	}
	v := float64(raw) / 10.0
	return &v
}

// AnnualStats is the derived per-station, per-year aggregate. Averaged
// fields are nil when the year has no valid samples for that field; the
// precipitation total is a sum and therefore 0, not nil, in that case.
type AnnualStats struct {
	StationID          string    `json:"station_id"`
	Year               int       `json:"year"`
	AvgMaxTemp         *float64  `json:"avg_max_temp"`
	AvgMinTemp         *float64  `json:"avg_min_temp"`
	TotalPrecipitation float64   `json:"total_precipitation"`
	MaxTempSamples     int       `json:"max_temp_samples"`
	MinTempSamples     int       `json:"min_temp_samples"`
	PrecipSamples      int       `json:"precip_samples"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ComputeAnnualStats derives the aggregate for one (station, year) group.
// Sentinel-valued fields are excluded from their average; a field with zero
// valid samples yields a nil average. Precipitation is summed, so an empty
// group yields 0. The result depends only on the input set, making repeated
// recomputation safe.
func ComputeAnnualStats(stationID string, year int, observations []Observation) AnnualStats {
	stats := AnnualStats{
		StationID: stationID,
		Year:      year,
	}

	var maxSum, minSum, precipSum int
	for _, o := range observations {
		if o.MaxTemp != MissingSentinel {
			maxSum += o.MaxTemp
			stats.MaxTempSamples++
		}
		if o.MinTemp != MissingSentinel {
			minSum += o.MinTemp
			stats.MinTempSamples++
		}
		if o.Precipitation != MissingSentinel {
			precipSum += o.Precipitation
			stats.PrecipSamples++
		}
	}

	if stats.MaxTempSamples > 0 {
		avg := float64(maxSum) / float64(stats.MaxTempSamples) / 10.0
		stats.AvgMaxTemp = &avg
	}
	if stats.MinTempSamples > 0 {
		avg := float64(minSum) / float64(stats.MinTempSamples) / 10.0
		stats.AvgMinTemp = &avg
	}
	if stats.PrecipSamples > 0 {
		stats.TotalPrecipitation = float64(precipSum) / 100.0
	}

	return stats
}
