package importer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

const (
	metersPerMile = 1609.34
	metersPerYard = 0.9144
)

// ParseNumber reads a number written with either comma or dot as decimal
// separator. Anything unparseable yields 0.
func ParseNumber(value string) float64 {
	n, _ := parseNumber(value)
	return n
}

// parseNumber reports whether value held a number at all.
//
// Separator rules: with both separators the later one is the decimal mark
// ("1,234.56", "1.234,56"). A lone comma followed by exactly three digits
// groups thousands ("4,000"), otherwise it is the decimal mark ("5,02").
// Several dots can only be grouping ("1.234.567").
func parseNumber(value string) (float64, bool) {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(value) {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			sb.WriteRune(r)
		}
	}
	cleaned := sb.String()
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if len(cleaned)-lastComma-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned[:lastComma], ",", "") + "." + cleaned[lastComma+1:]
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// DurationUnit is the unit of plain numeric duration values.
type DurationUnit string

const (
	DurationSeconds DurationUnit = "seconds"
	DurationMinutes DurationUnit = "minutes"
)

func (u DurationUnit) Valid() bool {
	return u == DurationSeconds || u == DurationMinutes
}

// MaxDurationMinutes bounds a single workout. Longer values are treated as
// unreadable.
const MaxDurationMinutes = 7 * 24 * 60

// ParseDuration returns minutes. Colon values are H:M:S or M:S whatever the
// unit; an empty part counts as 0 and a non numeric part makes the value 0.
// Values above MaxDurationMinutes also read as 0.
func ParseDuration(value string, unit DurationUnit) float64 {
	m := parseDuration(value, unit)
	if m < 0 || m > MaxDurationMinutes || math.IsNaN(m) {
		return 0
	}
	return m
}

func parseDuration(value string, unit DurationUnit) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	if strings.Contains(trimmed, ":") {
		parts := strings.Split(trimmed, ":")
		nums := make([]float64, len(parts))
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			n, ok := parseClockPart(p)
			if !ok {
				return 0
			}
			nums[i] = n
		}
		switch len(nums) {
		case 3:
			return nums[0]*60 + nums[1] + nums[2]/60
		case 2:
			return nums[0] + nums[1]/60
		}
		return 0
	}

	n := ParseNumber(trimmed)
	if unit == DurationSeconds {
		return n / 60
	}
	return n
}

// parseClockPart accepts plain decimals only, so "inf", "NaN" and hex floats
// are rejected.
func parseClockPart(p string) (float64, bool) {
	for _, r := range p {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false
		}
	}
	n, err := strconv.ParseFloat(p, 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Date layouts tried in order. Layouts without a clock are date-only.
var dateLayouts = []struct {
	layout   string
	dateOnly bool
}{
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"Jan 2, 2006, 3:04:05 PM", false},
	{"Jan 2, 2006 3:04:05 PM", false},
	{"01/02/2006 15:04:05", false},
	{"1/2/2006 15:04", false},
	{"2006-01-02", true},
	{"2006/01/02", true},
	{"01/02/2006", true},
	{"1/2/2006", true},
	{"Jan 2, 2006", true},
	{"January 2, 2006", true},
	{"02 Jan 2006", true},
	{"2 January 2006", true},
}

// ParseDate parses the date formats found in activity exports. Values
// without a zone are read as UTC and date-only values land at noon UTC, the
// same instant a calendar day maps to.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, v)
		if err != nil {
			continue
		}
		if l.dateOnly {
			t = t.Add(12 * time.Hour)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// DistanceUnit is the unit of raw distance values.
type DistanceUnit string

const (
	Meters     DistanceUnit = "meters"
	Kilometers DistanceUnit = "kilometers"
	Miles      DistanceUnit = "miles"
	Yards      DistanceUnit = "yards"
)

func (u DistanceUnit) Valid() bool {
	switch u {
	case Meters, Kilometers, Miles, Yards:
		return true
	}
	return false
}

// ValidSwim reports whether u can be chosen for swim distances.
func (u DistanceUnit) ValidSwim() bool {
	return u == Yards || u == Meters
}

func toMeters(v float64, unit DistanceUnit) float64 {
	switch unit {
	case Kilometers:
		return v * 1000
	case Miles:
		return v * metersPerMile
	case Yards:
		return v * metersPerYard
	default:
		return v
	}
}

// ConvertDistance converts a raw value into the stored unit of the sport:
// yards for Swim, miles for Bike and Run, nothing for Strength.
func ConvertDistance(raw float64, unit, swimUnit DistanceUnit, sport domain.Sport) float64 {
	switch sport {
	case domain.SportStrength:
		return 0
	case domain.SportSwim:
		if swimUnit == Meters {
			return raw / metersPerYard
		}
		return raw
	default:
		return toMeters(raw, unit) / metersPerMile
	}
}
