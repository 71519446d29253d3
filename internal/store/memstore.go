package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

type memSession struct {
	userID    int64
	expiresAt time.Time
}

// MemStore is a Store held entirely in memory. A single mutex guards all
// state, which gives the same atomicity as SQLStore's transactions.
type MemStore struct {
	mu sync.Mutex

	nextID       int64
	races        map[int64]trailrace.Race
	participants map[int64]trailrace.Participant
	bibSeq       map[int64]int64
	inquiries    []trailrace.ContactInquiry
	faqs         []trailrace.FAQ
	events       []trailrace.ProgramEvent
	sponsors     []trailrace.Sponsor
	users        map[int64]trailrace.User
	sessions     map[string]memSession
}

func NewMemStore() *MemStore {
	return &MemStore{
		races:        make(map[int64]trailrace.Race),
		participants: make(map[int64]trailrace.Participant),
		bibSeq:       make(map[int64]int64),
		users:        make(map[int64]trailrace.User),
		sessions:     make(map[string]memSession),
	}
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) ListRaces(_ context.Context, difficulty trailrace.Difficulty) ([]trailrace.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []trailrace.Race{}
	for _, r := range m.races {
		if difficulty == "" || r.Difficulty == difficulty {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b trailrace.Race) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemStore) GetRace(_ context.Context, id int64) (trailrace.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.races[id]
	if !ok {
		return r, ErrNotFound
	}
	return r, nil
}

func (m *MemStore) CreateRace(_ context.Context, r trailrace.Race) (trailrace.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.id()
	m.races[r.ID] = r
	return r, nil
}

func (m *MemStore) UpdateRace(_ context.Context, id int64, u trailrace.RaceUpdate) (trailrace.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.races[id]
	if !ok {
		return r, ErrNotFound
	}
	if u.ImageURL != nil {
		r.ImageURL = *u.ImageURL
	}
	if u.MapURL != nil {
		r.MapURL = *u.MapURL
	}
	m.races[id] = r
	return r, nil
}

func (m *MemStore) CreateParticipant(_ context.Context, p trailrace.Participant, bibPrefix string) (trailrace.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.races[p.RaceID]; !ok {
		return p, ErrNotFound
	}

	seq := m.bibSeq[p.RaceID]
	var bib string
	for range maxBibAttempts {
		seq++
		bib = trailrace.FormatBib(bibPrefix, seq)
		if !m.bibTaken(p.RaceID, bib) {
			break
		}
	}
	m.bibSeq[p.RaceID] = seq
	if m.bibTaken(p.RaceID, bib) {
		return p, ErrConflict
	}

	p.ID = m.id()
	p.BibNumber = bib
	if p.Status == "" {
		p.Status = trailrace.StatusPending
	}
	p.Payment = nil
	m.participants[p.ID] = p
	return p, nil
}

func (m *MemStore) bibTaken(raceID int64, bib string) bool {
	for _, other := range m.participants {
		if other.RaceID == raceID && other.BibNumber == bib {
			return true
		}
	}
	return false
}

func (m *MemStore) GetParticipant(_ context.Context, id int64) (trailrace.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[id]
	if !ok {
		return p, ErrNotFound
	}
	return clonePayment(p), nil
}

func (m *MemStore) ParticipantByPaymentToken(_ context.Context, token string) (trailrace.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found trailrace.Participant
	for _, p := range m.participants {
		if token != "" && p.Payment != nil && p.Payment.Token == token && p.ID > found.ID {
			found = p
		}
	}
	if found.ID == 0 {
		return found, ErrNotFound
	}
	return clonePayment(found), nil
}

func (m *MemStore) ListParticipants(_ context.Context, f trailrace.ParticipantFilter, now time.Time) ([]trailrace.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []trailrace.Participant{}
	for _, p := range m.participants {
		if f.Match(p, now) {
			out = append(out, clonePayment(p))
		}
	}
	slices.SortFunc(out, func(a, b trailrace.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemStore) SetPaymentLink(_ context.Context, id int64, link trailrace.PaymentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[id]
	if !ok {
		return ErrNotFound
	}
	p.Payment = &link
	m.participants[id] = p
	return nil
}

func (m *MemStore) TransitionStatus(_ context.Context, id int64, to trailrace.Status, from ...trailrace.Status) (trailrace.Participant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[id]
	if !ok {
		return p, false, ErrNotFound
	}
	if !statusIn(p.Status, from) {
		return clonePayment(p), false, nil
	}
	p.Status = to
	m.participants[id] = p
	return clonePayment(p), true, nil
}

// clonePayment detaches the PaymentLink pointer so callers cannot mutate
// stored state.
func clonePayment(p trailrace.Participant) trailrace.Participant {
	if p.Payment != nil {
		pl := *p.Payment
		p.Payment = &pl
	}
	return p
}

func (m *MemStore) CreateContactInquiry(_ context.Context, c trailrace.ContactInquiry) (trailrace.ContactInquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	m.inquiries = append(m.inquiries, c)
	return c, nil
}

func (m *MemStore) ListContactInquiries(context.Context) ([]trailrace.ContactInquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := slices.Clone(m.inquiries)
	slices.Reverse(out)
	if out == nil {
		out = []trailrace.ContactInquiry{}
	}
	return out, nil
}

func (m *MemStore) CreateFAQ(_ context.Context, f trailrace.FAQ) (trailrace.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f.ID = m.id()
	m.faqs = append(m.faqs, f)
	return f, nil
}

func (m *MemStore) ListFAQs(context.Context) ([]trailrace.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]trailrace.FAQ{}, m.faqs...)
	slices.SortStableFunc(out, func(a, b trailrace.FAQ) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

func (m *MemStore) CreateProgramEvent(_ context.Context, e trailrace.ProgramEvent) (trailrace.ProgramEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.id()
	m.events = append(m.events, e)
	return e, nil
}

func (m *MemStore) ListProgramEvents(context.Context) ([]trailrace.ProgramEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]trailrace.ProgramEvent{}, m.events...)
	slices.SortStableFunc(out, func(a, b trailrace.ProgramEvent) int {
		if c := cmp.Compare(a.Day, b.Day); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out, nil
}

func (m *MemStore) CreateSponsor(_ context.Context, s trailrace.Sponsor) (trailrace.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	m.sponsors = append(m.sponsors, s)
	return s, nil
}

func (m *MemStore) ListSponsors(context.Context) ([]trailrace.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]trailrace.Sponsor{}, m.sponsors...)
	slices.SortStableFunc(out, func(a, b trailrace.Sponsor) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

func (m *MemStore) CreateUser(_ context.Context, username, passwordHash string, now time.Time) (trailrace.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return trailrace.User{}, ErrConflict
		}
	}
	u := trailrace.User{ID: m.id(), Username: username, PasswordHash: passwordHash, CreatedAt: now.UTC()}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemStore) UserByUsername(_ context.Context, username string) (trailrace.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return trailrace.User{}, ErrNotFound
}

func (m *MemStore) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *MemStore) CreateSession(_ context.Context, userID int64, _, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return "", ErrNotFound
	}
	id := uuid.NewString()
	m.sessions[id] = memSession{userID: userID, expiresAt: expiresAt}
	return id, nil
}

func (m *MemStore) UserFromSession(_ context.Context, sessionID string, now time.Time) (trailrace.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || !s.expiresAt.After(now) {
		return trailrace.User{}, ErrNotFound
	}
	u, ok := m.users[s.userID]
	if !ok {
		return trailrace.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

var _ Store = (*MemStore)(nil)
