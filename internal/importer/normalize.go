package importer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

// Mapping tells the normalizer which column plays which role and how to read
// the values.
type Mapping struct {
	DateColumn     string `json:"dateColumn"`
	SportColumn    string `json:"sportColumn"`
	DurationColumn string `json:"durationColumn"`
	DistanceColumn string `json:"distanceColumn,omitempty"`

	DurationUnit DurationUnit `json:"durationUnit"`
	DistanceUnit DistanceUnit `json:"distanceUnit"` // Bike and Run
	SwimUnit     DistanceUnit `json:"swimUnit"`

	// AutoDetectMeters reads Bike/Run values of 1000 or more as meters.
	AutoDetectMeters bool `json:"autoDetectMeters"`
	// FixedSport, when set, replaces the sport column for every row.
	FixedSport *domain.Sport `json:"fixedSport,omitempty"`
}

// DefaultMapping has no columns chosen yet.
func DefaultMapping() Mapping {
	return Mapping{
		DurationUnit:     DurationMinutes,
		DistanceUnit:     Miles,
		SwimUnit:         Yards,
		AutoDetectMeters: true,
	}
}

// Missing lists the required roles that have no column. Rows cannot be
// normalized until it is empty.
func (m Mapping) Missing() []string {
	var missing []string
	if m.DateColumn == "" {
		missing = append(missing, "date")
	}
	if m.SportColumn == "" && m.FixedSport == nil {
		missing = append(missing, "sport")
	}
	if m.DurationColumn == "" {
		missing = append(missing, "duration")
	}
	return missing
}

// Validate checks units and the fixed sport. Empty units fall back to the
// defaults.
func (m *Mapping) Validate() error {
	d := DefaultMapping()
	if m.DurationUnit == "" {
		m.DurationUnit = d.DurationUnit
	}
	if m.DistanceUnit == "" {
		m.DistanceUnit = d.DistanceUnit
	}
	if m.SwimUnit == "" {
		m.SwimUnit = d.SwimUnit
	}
	if !m.DurationUnit.Valid() {
		return fmt.Errorf("unknown duration unit %q", m.DurationUnit)
	}
	if !m.DistanceUnit.Valid() {
		return fmt.Errorf("unknown distance unit %q", m.DistanceUnit)
	}
	if !m.SwimUnit.ValidSwim() {
		return fmt.Errorf("swim distance must be yards or meters, got %q", m.SwimUnit)
	}
	if m.FixedSport != nil && !m.FixedSport.Valid() {
		return fmt.Errorf("unknown sport %q", *m.FixedSport)
	}
	return nil
}

// Candidate is a normalized row, ready to become a Workout.
type Candidate struct {
	Date      time.Time    `json:"date"`
	Sport     domain.Sport `json:"sport"`
	Duration  int          `json:"duration"`
	Distance  float64      `json:"distance"`
	Intensity int          `json:"intensity"`
}

// Workout builds the record to store, with its load.
func (c Candidate) Workout() domain.Workout {
	return domain.NewWorkout(c.Date, c.Sport, c.Duration, c.Distance, c.Intensity)
}

// NormalizeRow converts one row. The row is rejected only when its date or
// sport cannot be resolved; bad durations and distances degrade to their
// floors.
func NormalizeRow(row Row, m Mapping, intensity int) (Candidate, bool) {
	date, ok := ParseDate(row[m.DateColumn])
	if !ok {
		return Candidate{}, false
	}

	rawSport := row[m.SportColumn]
	var sport domain.Sport
	if m.FixedSport != nil {
		sport = *m.FixedSport
	} else if sport, ok = NormalizeSport(rawSport); !ok {
		return Candidate{}, false
	}

	duration := ParseDuration(row[m.DurationColumn], m.DurationUnit)

	var distance float64
	if m.DistanceColumn != "" {
		raw := ParseNumber(row[m.DistanceColumn])
		unit := m.DistanceUnit
		if sport == domain.SportBike || sport == domain.SportRun {
			if m.AutoDetectMeters && unit != Meters && raw >= 1000 {
				unit = Meters
			}
			if m.FixedSport == nil && strings.Contains(strings.ToLower(rawSport), "track") {
				unit = Meters
			}
		}
		distance = ConvertDistance(raw, unit, m.SwimUnit, sport)
	}

	return Candidate{
		Date:      date,
		Sport:     sport,
		Duration:  max(1, int(math.Round(duration))),
		Distance:  math.Max(0, domain.RoundTo(distance, 2)),
		Intensity: domain.ClampIntensity(intensity),
	}, true
}

// Preview is the outcome of normalizing a whole file.
type Preview struct {
	Workouts []Candidate `json:"workouts"`
	Skipped  int         `json:"skipped"`
	Missing  []string    `json:"missing,omitempty"`
}

// GeneratePreview normalizes every row. With required columns missing no row
// is accepted and every row counts as skipped. It has no side effects.
func GeneratePreview(rows []Row, m Mapping, intensity int) Preview {
	if missing := m.Missing(); len(missing) > 0 {
		return Preview{Workouts: []Candidate{}, Skipped: len(rows), Missing: missing}
	}
	p := Preview{Workouts: make([]Candidate, 0, len(rows))}
	for _, row := range rows {
		c, ok := NormalizeRow(row, m, intensity)
		if !ok {
			p.Skipped++
			continue
		}
		p.Workouts = append(p.Workouts, c)
	}
	return p
}
