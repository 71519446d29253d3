package trailrace

import (
	"strings"
	"time"
)

// ParticipantFilter selects participants. Zero-valued fields match
// everything; set fields are combined with AND.
type ParticipantFilter struct {
	RaceID   int64
	Country  string
	Search   string
	EMA      *bool
	Gender   Gender
	Category string
	Status   Status
}

// Match reports whether p satisfies every set field. Age categories are
// derived from the birth date on the day given by now.
func (f ParticipantFilter) Match(p Participant, now time.Time) bool {
	if f.RaceID != 0 && p.RaceID != f.RaceID {
		return false
	}
	if f.Country != "" && p.Country != f.Country {
		return false
	}
	if f.EMA != nil && p.IsEMAParticipant != *f.EMA {
		return false
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Search != "" && !matchesName(p, f.Search) {
		return false
	}
	if f.Category != "" && ParticipantCategory(p, now) != f.Category {
		return false
	}
	return true
}

// ParticipantCategory is the age category of p on the given day.
func ParticipantCategory(p Participant, now time.Time) string {
	age := p.Age
	if !p.BirthDate.IsZero() {
		age = AgeAt(p.BirthDate, now)
	}
	return AgeCategory(p.Gender, age)
}

func matchesName(p Participant, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	full := strings.ToLower(p.FirstName + " " + p.LastName)
	return strings.Contains(full, q)
}
