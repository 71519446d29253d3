// Package store persists races, participants and site content. SQLStore
// is the production adapter; MemStore is an in-process implementation
// used by tests and demo deployments.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Store interface {
	Ping(ctx context.Context) error

	ListRaces(ctx context.Context, difficulty trailrace.Difficulty) ([]trailrace.Race, error)
	GetRace(ctx context.Context, id int64) (trailrace.Race, error)
	CreateRace(ctx context.Context, r trailrace.Race) (trailrace.Race, error)
	UpdateRace(ctx context.Context, id int64, u trailrace.RaceUpdate) (trailrace.Race, error)

	// CreateParticipant allocates the next bib sequence for p.RaceID and
	// inserts p with bib number FormatBib(bibPrefix, seq), atomically.
	CreateParticipant(ctx context.Context, p trailrace.Participant, bibPrefix string) (trailrace.Participant, error)
	GetParticipant(ctx context.Context, id int64) (trailrace.Participant, error)
	ParticipantByPaymentToken(ctx context.Context, token string) (trailrace.Participant, error)
	ListParticipants(ctx context.Context, f trailrace.ParticipantFilter, now time.Time) ([]trailrace.Participant, error)
	SetPaymentLink(ctx context.Context, id int64, link trailrace.PaymentLink) error
	// TransitionStatus moves a participant to status to if its current
	// status is one of from. changed is false when the participant exists
	// but was not in an allowed state; p is then the unchanged record.
	TransitionStatus(ctx context.Context, id int64, to trailrace.Status, from ...trailrace.Status) (p trailrace.Participant, changed bool, err error)

	CreateContactInquiry(ctx context.Context, c trailrace.ContactInquiry) (trailrace.ContactInquiry, error)
	ListContactInquiries(ctx context.Context) ([]trailrace.ContactInquiry, error)

	CreateFAQ(ctx context.Context, f trailrace.FAQ) (trailrace.FAQ, error)
	ListFAQs(ctx context.Context) ([]trailrace.FAQ, error)
	CreateProgramEvent(ctx context.Context, e trailrace.ProgramEvent) (trailrace.ProgramEvent, error)
	ListProgramEvents(ctx context.Context) ([]trailrace.ProgramEvent, error)
	CreateSponsor(ctx context.Context, s trailrace.Sponsor) (trailrace.Sponsor, error)
	ListSponsors(ctx context.Context) ([]trailrace.Sponsor, error)

	CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (trailrace.User, error)
	UserByUsername(ctx context.Context, username string) (trailrace.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	CreateSession(ctx context.Context, userID int64, now, expiresAt time.Time) (sessionID string, err error)
	UserFromSession(ctx context.Context, sessionID string, now time.Time) (trailrace.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Timestamps are stored as fixed-width UTC text so that string
// comparison in SQL orders them chronologically.
const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// dbTime scans a timestamp or date column. libsql hands date-looking TEXT
// back as time.Time; other drivers return the stored text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", dateLayout}

func (t *dbTime) Scan(v any) error {
	switch v := v.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into a timestamp", v)
}

func (t *dbTime) parse(s string) error {
	if s == "" {
		*t = dbTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = dbTime{Time: v.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// dbDay scans a calendar day kept as "2006-01-02" text.
type dbDay string

func (d *dbDay) Scan(v any) error {
	if s, ok := v.(string); ok {
		*d = dbDay(s)
		return nil
	}
	var t dbTime
	if err := t.Scan(v); err != nil {
		return err
	}
	*d = ""
	if t.Valid {
		*d = dbDay(t.Time.Format(dateLayout))
	}
	return nil
}

func statusIn(s trailrace.Status, set []trailrace.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
