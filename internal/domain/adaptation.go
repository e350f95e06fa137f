package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidAdaptation = errors.New("invalid adaptation input")

// Session categories offered per discipline. "Other" is always accepted.
var AdaptationCategories = map[Discipline][]string{
	DisciplineRun:  {"Aerobic Base Build", "Threshold Intervals", "Hill Repeats", "Easy Recovery Run", "Other"},
	DisciplineBike: {"Steady State (Post-Intervals)", "Progressive Build (Ride 6)", "Pure Aerobic (Recovery)", "Other"},
	DisciplineSwim: {"Endurance Sets", "Technique/Drills", "Sprints", "Other"},
}

// RecoveryCategory is the session type used as the fatigue baseline.
const RecoveryCategory = "Pure Aerobic (Recovery)"

// AdaptationSession records aerobic efficiency for one session.
type AdaptationSession struct {
	ID         string     `bson:"-" json:"id"`
	Date       time.Time  `bson:"date" json:"date"`
	Discipline Discipline `bson:"discipline" json:"discipline"`
	Type       string     `bson:"type" json:"type"`
	EF         float64    `bson:"ef" json:"ef"`
	Decoupling float64    `bson:"decoupling" json:"decoupling"` // signed % drift
}

// AdaptationInput holds the raw numbers an athlete enters for a session.
// Only the work field matching the discipline is read.
type AdaptationInput struct {
	Discipline Discipline `bson:"discipline" json:"discipline"`
	Type       string     `bson:"type" json:"type"`
	AvgHR      float64    `bson:"avgHr" json:"avgHr"`
	Drift      float64    `bson:"drift" json:"drift"`
	AvgPower   *float64   `bson:"avgPower,omitempty" json:"avgPower,omitempty"`
	PaceMin    *float64   `bson:"paceMin,omitempty" json:"paceMin,omitempty"`
	PaceSec    *float64   `bson:"paceSec,omitempty" json:"paceSec,omitempty"`
	SwimSpeed  *float64   `bson:"swimSpeed,omitempty" json:"swimSpeed,omitempty"`
}

func (in AdaptationInput) Validate() error {
	if !in.Discipline.Valid() {
		return fmt.Errorf("%w: unknown discipline %q", ErrInvalidAdaptation, in.Discipline)
	}
	if in.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidAdaptation)
	}
	if in.AvgHR < 0 {
		return fmt.Errorf("%w: average heart rate cannot be negative", ErrInvalidAdaptation)
	}
	return nil
}

// Work returns the discipline specific work figure: average power for Bike,
// 1000 / pace (minutes per mile) for Run and average speed for Swim.
func (in AdaptationInput) Work() float64 {
	switch in.Discipline {
	case DisciplineBike:
		return deref(in.AvgPower)
	case DisciplineRun:
		pace := deref(in.PaceMin) + deref(in.PaceSec)/60
		if pace <= 0 {
			return 0
		}
		return 1000 / pace
	default:
		return deref(in.SwimSpeed)
	}
}

// EfficiencyFactor is work per heart beat rounded to 4 decimals, or 0 when the
// heart rate is not positive.
func (in AdaptationInput) EfficiencyFactor() float64 {
	if in.AvgHR <= 0 {
		return 0
	}
	return RoundTo(in.Work()/in.AvgHR, 4)
}

// NewAdaptationSession derives the stored session from raw input.
func NewAdaptationSession(date time.Time, in AdaptationInput) AdaptationSession {
	return AdaptationSession{
		Date:       date,
		Discipline: in.Discipline,
		Type:       in.Type,
		EF:         in.EfficiencyFactor(),
		Decoupling: in.Drift,
	}
}

// AerobicStatus classifies a session by its decoupling.
type AerobicStatus string

const (
	StatusStable      AerobicStatus = "Aerobically Stable"
	StatusDeveloping  AerobicStatus = "Developing"
	StatusHighFatigue AerobicStatus = "High Fatigue"
)

func (s AdaptationSession) Status() AerobicStatus {
	switch {
	case s.Decoupling <= 5.0:
		return StatusStable
	case s.Decoupling <= 8.0:
		return StatusDeveloping
	default:
		return StatusHighFatigue
	}
}

// Signal is the coach's traffic light for the next session.
type Signal string

const (
	SignalGreen   Signal = "green"
	SignalCaution Signal = "caution"
	SignalRed     Signal = "red"
)

// Recommendation turns the most recent decoupling into load advice.
type Recommendation struct {
	Signal     Signal  `json:"signal"`
	Decoupling float64 `json:"decoupling"`
	Action     string  `json:"action"`
}

func RecommendationFor(latest AdaptationSession) Recommendation {
	r := Recommendation{Decoupling: latest.Decoupling}
	switch {
	case latest.Decoupling <= 5.0:
		r.Signal = SignalGreen
		r.Action = "Aerobic engine is stable at this load. A 10-15% increase in duration or a small intensity jump is earned."
	case latest.Decoupling <= 10.0:
		r.Signal = SignalCaution
		r.Action = "Adapting, but heart rate is still drifting. Hold the current volume for 1-2 more sessions."
	default:
		r.Signal = SignalRed
		r.Action = "High cardiac drift. The load is too high right now; back off duration or intensity."
	}
	return r
}

// FatigueAlert reports whether the latest recovery session's EF fell more than
// 5% below the mean of all recovery sessions. Sessions must be in date order.
func FatigueAlert(sessions []AdaptationSession) (alert bool, drop float64) {
	var sum float64
	var n int
	var latest *AdaptationSession
	for i := range sessions {
		if sessions[i].Type != RecoveryCategory {
			continue
		}
		sum += sessions[i].EF
		n++
		latest = &sessions[i]
	}
	if n == 0 || sum == 0 {
		return false, 0
	}
	mean := sum / float64(n)
	drop = latest.EF/mean - 1
	return drop < -0.05, drop
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
