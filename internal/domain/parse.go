package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseReason classifies why a source line could not be parsed.
type ParseReason string

const (
	ReasonFieldCount  ParseReason = "field_count"
	ReasonNonNumeric  ParseReason = "non_numeric"
	ReasonInvalidDate ParseReason = "invalid_date"
)

// ParseError describes a malformed source line. Lines that fail to parse
// are counted and skipped by the loader; they never abort a batch.
type ParseError struct {
	StationID string
	Line      string
	Reason    ParseReason
	Err       error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse line for station %s (%s): %v", e.StationID, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse line for station %s (%s)", e.StationID, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLine converts one station-file line into an Observation. The line
// holds four whitespace-separated fields in fixed order: an 8-digit
// YYYYMMDD date, then max temperature, min temperature, and precipitation
// as raw integers in tenths of their native unit. MissingSentinel values
// are preserved as-is; conversion happens later, at read time.
func ParseLine(line, stationID string) (Observation, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Observation{}, &ParseError{
			StationID: stationID,
			Line:      line,
			Reason:    ReasonFieldCount,
			Err:       fmt.Errorf("expected 4 fields, got %d", len(fields)),
		}
	}

	date, err := parseDate(fields[0])
	if err != nil {
		return Observation{}, &ParseError{StationID: stationID, Line: line, Reason: ReasonInvalidDate, Err: err}
	}

	values := make([]int, 3)
	for i, tok := range fields[1:] {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return Observation{}, &ParseError{StationID: stationID, Line: line, Reason: ReasonNonNumeric, Err: err}
		}
		values[i] = v
	}

	return Observation{
		StationID:     stationID,
		Date:          date,
		MaxTemp:       values[0],
		MinTemp:       values[1],
		Precipitation: values[2],
		CreatedAt:     clock.Now().UTC(),
	}, nil
}

// parseDate accepts exactly eight digits forming a real calendar date.
// time.Parse alone would accept short tokens like "2014011", so the length
// is checked first.
func parseDate(token string) (time.Time, error) {
	if len(token) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date token %q: want %d digits", token, len(DateLayout))
	}
	t, err := time.ParseInLocation(DateLayout, token, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date token %q: %w", token, err)
	}
	return t, nil
}
