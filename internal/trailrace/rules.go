package trailrace

import (
	"fmt"
	"time"
)

// AgeAt returns the age in whole years on the given day. A birthday that
// has not yet been reached in the current year does not count.
func AgeAt(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()
	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// BibPrefix maps a race distance to the code printed before the
// sequence number on a bib.
func BibPrefix(distanceKm float64) string {
	switch {
	case distanceKm <= 10:
		return "10K"
	case distanceKm <= 21:
		return "21K"
	case distanceKm <= 33:
		return "33K"
	default:
		return "ULTRA"
	}
}

func FormatBib(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%d", prefix, seq)
}

// AgeBand is one row of the masters category table.
type AgeBand struct {
	Code   string `json:"code"`
	Gender Gender `json:"gender"`
	MinAge int    `json:"minAge"`
	MaxAge int    `json:"maxAge,omitempty"` // 0 means open-ended
}

var bandStarts = []int{35, 40, 45, 50, 55, 60, 65, 70}

var ageBands = func() []AgeBand {
	var out []AgeBand
	for _, g := range []Gender{GenderMale, GenderFemale} {
		for i, start := range bandStarts {
			b := AgeBand{Gender: g, MinAge: start}
			if i == len(bandStarts)-1 {
				b.Code = fmt.Sprintf("%s%d+", g, start)
			} else {
				b.Code = fmt.Sprintf("%s%d", g, start)
				b.MaxAge = start + 4
			}
			out = append(out, b)
		}
	}
	return out
}()

// AgeCategories returns the category table, men first.
func AgeCategories() []AgeBand {
	out := make([]AgeBand, len(ageBands))
	copy(out, ageBands)
	return out
}

// AgeCategory returns the band code for a gender and age, or "" when the
// age is below the first band.
func AgeCategory(g Gender, age int) string {
	for _, b := range ageBands {
		if b.Gender != g || age < b.MinAge {
			continue
		}
		if b.MaxAge == 0 || age <= b.MaxAge {
			return b.Code
		}
	}
	return ""
}
