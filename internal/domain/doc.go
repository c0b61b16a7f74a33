// Package domain models daily weather-station observations and their
// derived annual statistics.
//
// # Data Source
//
// Observations arrive as plain-text station files, one file per station
// with the station identifier encoded in the file name (e.g.
// USC00110072.txt). Each line is one daily record with four
// whitespace-separated fields in fixed order:
//
//	<date> <max_temp> <min_temp> <precipitation>
//	20140101 100 -20 0
//
// Dates are 8-digit YYYYMMDD. The numeric fields are integers in tenths of
// the native unit: tenths of a degree Celsius for temperatures, tenths of a
// millimeter for precipitation.
//
// # Missing values
//
// The value -9999 is a sentinel meaning "no measurement taken". It is kept
// verbatim in stored records and mapped to nil by the conversion accessors;
// it never contributes to an aggregate and never collapses to zero.
//
// # Unit conversion
//
// Raw values are converted at read time, after sentinel detection:
//
//	temperature:   raw / 10.0   → degrees Celsius (350 → 35.0)
//	precipitation: raw / 100.0  → centimeters     (25  → 0.25)
//
// # Aggregation
//
// [ComputeAnnualStats] reduces one (station, year) group of observations to
// an [AnnualStats] value: arithmetic mean of the valid max and min
// temperatures and the sum of valid precipitation. Averages with no valid
// samples are nil; the precipitation sum with no valid samples is 0. The
// function is pure, so re-running aggregation over the same observation set
// always produces the same row.
package domain
