package importer

import (
	"strings"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

// Header tokens tried for each column role, highest priority first.
var (
	DateCandidates     = []string{"activity date", "start date", "date"}
	SportCandidates    = []string{"activity type", "sport", "type"}
	DurationCandidates = []string{"moving time", "elapsed time", "duration", "time"}
	DistanceCandidates = []string{"distance"}
)

// Thresholds on sample means that reveal the unit of a column.
const (
	secondsMeanThreshold = 300.0
	metersMeanThreshold  = 200.0
)

// GuessColumn picks the header for a column role. Exact (case-insensitive)
// matches win over substring matches; within a tier candidates are tried in
// order. Returns "" when nothing matches.
func GuessColumn(headers []string, candidates []string) string {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, c := range candidates {
		for i, h := range lower {
			if h == c {
				return headers[i]
			}
		}
	}
	for _, c := range candidates {
		for i, h := range lower {
			if strings.Contains(h, c) {
				return headers[i]
			}
		}
	}
	return ""
}

// InferDurationUnit decides whether plain duration values are seconds or
// minutes. Colon values parse the same in both units, so prior is kept.
func InferDurationUnit(samples []string, prior DurationUnit) DurationUnit {
	var sum float64
	var n int
	for _, s := range samples {
		if strings.Contains(s, ":") {
			return prior
		}
		v, ok := parseNumber(s)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return prior
	}
	if sum/float64(n) > secondsMeanThreshold {
		return DurationSeconds
	}
	return DurationMinutes
}

// InferDistanceUnit looks at Bike and Run rows only: raw values averaging in
// the hundreds or more are meters. Otherwise declared is kept.
func InferDistanceUnit(rows []Row, distanceCol, sportCol string, declared DistanceUnit) DistanceUnit {
	if distanceCol == "" || sportCol == "" {
		return declared
	}
	var sum float64
	var n int
	for _, row := range rows {
		sport, ok := NormalizeSport(row[sportCol])
		if !ok || (sport != domain.SportBike && sport != domain.SportRun) {
			continue
		}
		v, ok := parseNumber(row[distanceCol])
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n > 0 && sum/float64(n) > metersMeanThreshold {
		return Meters
	}
	return declared
}

var sportKeywords = []struct {
	sport    domain.Sport
	keywords []string
}{
	{domain.SportSwim, []string{"swim"}},
	{domain.SportBike, []string{"ride", "bike", "biking", "cycle", "cycling", "trainer", "spin"}},
	{domain.SportRun, []string{"run", "walk", "hike"}},
	{domain.SportStrength, []string{"strength", "weight", "gym", "workout", "yoga", "boulder", "climb", "cardio", "hiit", "pilates", "elliptical", "rowing", "row "}},
}

// NormalizeSport maps an activity label onto a Sport by keyword. Sports are
// checked Swim, Bike, Run, Strength and the first match wins.
func NormalizeSport(label string) (domain.Sport, bool) {
	l := strings.ToLower(label)
	for _, s := range sportKeywords {
		for _, kw := range s.keywords {
			if strings.Contains(l, kw) {
				return s.sport, true
			}
		}
	}
	return "", false
}

// SuggestMapping guesses a full mapping for a freshly read file, sampling at
// most sampleRows rows for unit inference.
func SuggestMapping(t *Table, sampleRows int) Mapping {
	m := DefaultMapping()
	m.DateColumn = GuessColumn(t.Headers, DateCandidates)
	m.SportColumn = GuessColumn(t.Headers, SportCandidates)
	m.DurationColumn = GuessColumn(t.Headers, DurationCandidates)
	m.DistanceColumn = GuessColumn(t.Headers, DistanceCandidates)

	sample := t.Rows
	if sampleRows > 0 && len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	if m.DurationColumn != "" {
		values := make([]string, 0, len(sample))
		for _, row := range sample {
			values = append(values, row[m.DurationColumn])
		}
		m.DurationUnit = InferDurationUnit(values, m.DurationUnit)
	}
	m.DistanceUnit = InferDistanceUnit(sample, m.DistanceColumn, m.SportColumn, m.DistanceUnit)
	return m
}
