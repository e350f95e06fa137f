package domain

import (
	"sort"
	"time"
)

// Totals sums distance and time per sport. Swim distance is in yards, Bike
// and Run in miles.
type Totals struct {
	SwimYards     float64 `json:"swimYards"`
	BikeMiles     float64 `json:"bikeMiles"`
	RunMiles      float64 `json:"runMiles"`
	TotalMinutes  int     `json:"totalMinutes"`
	TotalLoad     int     `json:"totalLoad"`
	WorkoutsCount int     `json:"workouts"`
}

func (t *Totals) add(w Workout) {
	switch w.Sport {
	case SportSwim:
		t.SwimYards += w.Distance
	case SportBike:
		t.BikeMiles += w.Distance
	case SportRun:
		t.RunMiles += w.Distance
	}
	t.TotalMinutes += w.Duration
	t.TotalLoad += w.Load
	t.WorkoutsCount++
}

func (t *Totals) round() {
	t.SwimYards = RoundTo(t.SwimYards, 2)
	t.BikeMiles = RoundTo(t.BikeMiles, 2)
	t.RunMiles = RoundTo(t.RunMiles, 2)
}

// LifetimeTotals sums every workout.
func LifetimeTotals(workouts []Workout) Totals {
	var t Totals
	for _, w := range workouts {
		t.add(w)
	}
	t.round()
	return t
}

// SeasonTotals sums the workouts dated in the given calendar year (UTC).
func SeasonTotals(workouts []Workout, year int) Totals {
	var t Totals
	for _, w := range workouts {
		if w.Date.UTC().Year() == year {
			t.add(w)
		}
	}
	t.round()
	return t
}

// LoadVerdict grades week-over-week load progression.
type LoadVerdict string

const (
	VerdictMidWeek   LoadVerdict = "mid_week"
	VerdictDanger    LoadVerdict = "danger"
	VerdictPushing   LoadVerdict = "pushing"
	VerdictRecovery  LoadVerdict = "recovery"
	VerdictSweetSpot LoadVerdict = "sweet_spot"
)

// WeeklyLoadReport compares this week's training load with last week's.
type WeeklyLoadReport struct {
	ThisWeekLoad    int         `json:"thisWeekLoad"`
	LastWeekLoad    int         `json:"lastWeekLoad"`
	IncreasePercent float64     `json:"increasePercent"`
	Verdict         LoadVerdict `json:"verdict"`
}

// LoadReport builds the weekly report as of now. Weeks start on Monday and the
// verdict is only given from Friday on.
func LoadReport(workouts []Workout, now time.Time) WeeklyLoadReport {
	thisWeek := WeekStart(now)
	lastWeek := thisWeek.AddDate(0, 0, -7)

	var r WeeklyLoadReport
	for _, w := range workouts {
		d := w.Date.In(now.Location())
		switch {
		case d.After(thisWeek):
			r.ThisWeekLoad += w.Load
		case d.After(lastWeek):
			r.LastWeekLoad += w.Load
		}
	}
	if r.LastWeekLoad > 0 {
		r.IncreasePercent = RoundTo(float64(r.ThisWeekLoad-r.LastWeekLoad)/float64(r.LastWeekLoad)*100, 1)
	}

	dayOfWeek := (int(now.Weekday()) + 6) % 7 // Monday = 0
	switch {
	case dayOfWeek < 4:
		r.Verdict = VerdictMidWeek
	case r.IncreasePercent > 25:
		r.Verdict = VerdictDanger
	case r.IncreasePercent > 15:
		r.Verdict = VerdictPushing
	case r.IncreasePercent < -20:
		r.Verdict = VerdictRecovery
	default:
		r.Verdict = VerdictSweetSpot
	}
	return r
}

// WeekVolume is the training time of one Monday-based week, in hours.
type WeekVolume struct {
	WeekStart time.Time         `json:"weekStart"`
	Hours     map[Sport]float64 `json:"hours"`
	Total     float64           `json:"total"`
	Trend     float64           `json:"trend"` // rolling 4-week average of Total
}

// WeeklyVolume groups workouts by week in ascending order.
func WeeklyVolume(workouts []Workout) []WeekVolume {
	byWeek := make(map[time.Time]*WeekVolume)
	for _, w := range workouts {
		ws := WeekStart(w.Date.UTC())
		wv, ok := byWeek[ws]
		if !ok {
			wv = &WeekVolume{WeekStart: ws, Hours: make(map[Sport]float64, len(Sports))}
			for _, s := range Sports {
				wv.Hours[s] = 0
			}
			byWeek[ws] = wv
		}
		wv.Hours[w.Sport] += float64(w.Duration) / 60
	}

	weeks := make([]WeekVolume, 0, len(byWeek))
	for _, wv := range byWeek {
		for _, s := range Sports {
			wv.Total += wv.Hours[s]
		}
		weeks = append(weeks, *wv)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekStart.Before(weeks[j].WeekStart) })

	for i := range weeks {
		start := i - 3
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, wv := range weeks[start : i+1] {
			sum += wv.Total
		}
		weeks[i].Trend = sum / float64(i+1-start)
	}
	return weeks
}

// WeekStart returns Monday 00:00 of t's week in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
