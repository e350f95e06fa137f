package domain

import "fmt"

// Sport is the activity type of a completed Workout.
type Sport string

const (
	SportSwim     Sport = "Swim"
	SportBike     Sport = "Bike"
	SportRun      Sport = "Run"
	SportStrength Sport = "Strength"
)

// Sports lists every workout sport in display order.
var Sports = []Sport{SportSwim, SportBike, SportRun, SportStrength}

func (s Sport) Valid() bool {
	switch s {
	case SportSwim, SportBike, SportRun, SportStrength:
		return true
	}
	return false
}

// HasDistance reports whether distance is tracked for the sport.
func (s Sport) HasDistance() bool {
	return s != SportStrength
}

// ParseSport converts a stored or user supplied label into a Sport.
func ParseSport(v string) (Sport, error) {
	s := Sport(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sport %q", v)
	}
	return s, nil
}

// CalendarSport is the sport of a PlannedWorkout on the training calendar.
type CalendarSport string

const (
	CalendarSwim  CalendarSport = "Swim"
	CalendarBike  CalendarSport = "Bike"
	CalendarRun   CalendarSport = "Run"
	CalendarLift  CalendarSport = "Lift"
	CalendarOther CalendarSport = "Other"
)

func (c CalendarSport) Valid() bool {
	switch c {
	case CalendarSwim, CalendarBike, CalendarRun, CalendarLift, CalendarOther:
		return true
	}
	return false
}

// ParseCalendarSport converts a label into a CalendarSport.
func ParseCalendarSport(v string) (CalendarSport, error) {
	c := CalendarSport(v)
	if !c.Valid() {
		return "", fmt.Errorf("unknown calendar sport %q", v)
	}
	return c, nil
}

// WorkoutSport maps a calendar sport onto the sport of the Workout it produces
// when completed. Lift and Other are both logged as Strength.
func (c CalendarSport) WorkoutSport() Sport {
	switch c {
	case CalendarSwim:
		return SportSwim
	case CalendarBike:
		return SportBike
	case CalendarRun:
		return SportRun
	default:
		return SportStrength
	}
}

// Discipline returns the adaptation discipline for the calendar sport.
// Lift and Other have none and never produce an AdaptationSession.
func (c CalendarSport) Discipline() (Discipline, bool) {
	switch c {
	case CalendarSwim:
		return DisciplineSwim, true
	case CalendarBike:
		return DisciplineBike, true
	case CalendarRun:
		return DisciplineRun, true
	}
	return "", false
}

// Discipline is the sport of an AdaptationSession.
type Discipline string

const (
	DisciplineSwim Discipline = "Swim"
	DisciplineBike Discipline = "Bike"
	DisciplineRun  Discipline = "Run"
)

func (d Discipline) Valid() bool {
	switch d {
	case DisciplineSwim, DisciplineBike, DisciplineRun:
		return true
	}
	return false
}

// ParseDiscipline converts a label into a Discipline.
func ParseDiscipline(v string) (Discipline, error) {
	d := Discipline(v)
	if !d.Valid() {
		return "", fmt.Errorf("unknown discipline %q", v)
	}
	return d, nil
}
