package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

// SQLStore implements Store on database/sql. The schema is owned by the
// migrations package.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

const raceColumns = `id, name_ro, name_en, name_fr, name_de,
	description_ro, description_en, description_fr, description_de,
	distance_km, elevation_gain_m, difficulty, race_date, price,
	image_url, map_url, is_ema_certified, is_national_championship`

func scanRace(row scanner) (trailrace.Race, error) {
	var r trailrace.Race
	var date dbTime
	err := row.Scan(&r.ID, &r.Name.RO, &r.Name.EN, &r.Name.FR, &r.Name.DE,
		&r.Description.RO, &r.Description.EN, &r.Description.FR, &r.Description.DE,
		&r.DistanceKm, &r.ElevationGainM, &r.Difficulty, &date, &r.Price,
		&r.ImageURL, &r.MapURL, &r.IsEMACertified, &r.IsNationalChampionship)
	r.Date = date.Time
	return r, err
}

func (s *SQLStore) ListRaces(ctx context.Context, difficulty trailrace.Difficulty) ([]trailrace.Race, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+raceColumns+` FROM races
		WHERE ? = '' OR difficulty = ?
		ORDER BY distance_km, id
	`, difficulty, difficulty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	races := []trailrace.Race{}
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

func (s *SQLStore) GetRace(ctx context.Context, id int64) (trailrace.Race, error) {
	r, err := scanRace(s.db.QueryRowContext(ctx, `SELECT `+raceColumns+` FROM races WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) CreateRace(ctx context.Context, r trailrace.Race) (trailrace.Race, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO races (name_ro, name_en, name_fr, name_de,
			description_ro, description_en, description_fr, description_de,
			distance_km, elevation_gain_m, difficulty, race_date, price,
			image_url, map_url, is_ema_certified, is_national_championship)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, r.Name.RO, r.Name.EN, r.Name.FR, r.Name.DE,
		r.Description.RO, r.Description.EN, r.Description.FR, r.Description.DE,
		r.DistanceKm, r.ElevationGainM, r.Difficulty, formatTime(r.Date), r.Price,
		r.ImageURL, r.MapURL, r.IsEMACertified, r.IsNationalChampionship,
	).Scan(&r.ID)
	return r, err
}

func (s *SQLStore) UpdateRace(ctx context.Context, id int64, u trailrace.RaceUpdate) (trailrace.Race, error) {
	r, err := scanRace(s.db.QueryRowContext(ctx, `
		UPDATE races SET
			image_url = COALESCE(?, image_url),
			map_url = COALESCE(?, map_url)
		WHERE id = ?
		RETURNING `+raceColumns,
		nullable(u.ImageURL), nullable(u.MapURL), id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *SQLStore) CreateContactInquiry(ctx context.Context, c trailrace.ContactInquiry) (trailrace.ContactInquiry, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contact_inquiries (name, email, subject, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, c.Name, c.Email, c.Subject, c.Message, formatTime(c.CreatedAt)).Scan(&c.ID)
	return c, err
}

func (s *SQLStore) ListContactInquiries(ctx context.Context) ([]trailrace.ContactInquiry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, subject, message, created_at
		FROM contact_inquiries
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []trailrace.ContactInquiry{}
	for rows.Next() {
		var c trailrace.ContactInquiry
		var created dbTime
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = created.Time
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateFAQ(ctx context.Context, f trailrace.FAQ) (trailrace.FAQ, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO faqs (question_ro, question_en, question_fr, question_de,
			answer_ro, answer_en, answer_fr, answer_de, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, f.Question.RO, f.Question.EN, f.Question.FR, f.Question.DE,
		f.Answer.RO, f.Answer.EN, f.Answer.FR, f.Answer.DE, f.Order).Scan(&f.ID)
	return f, err
}

func (s *SQLStore) ListFAQs(ctx context.Context) ([]trailrace.FAQ, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_ro, question_en, question_fr, question_de,
			answer_ro, answer_en, answer_fr, answer_de, sort_order
		FROM faqs
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []trailrace.FAQ{}
	for rows.Next() {
		var f trailrace.FAQ
		if err := rows.Scan(&f.ID, &f.Question.RO, &f.Question.EN, &f.Question.FR, &f.Question.DE,
			&f.Answer.RO, &f.Answer.EN, &f.Answer.FR, &f.Answer.DE, &f.Order); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateProgramEvent(ctx context.Context, e trailrace.ProgramEvent) (trailrace.ProgramEvent, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO program_events (day, start_time, end_time,
			title_ro, title_en, title_fr, title_de,
			description_ro, description_en, description_fr, description_de, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, e.Day, e.StartTime, e.EndTime,
		e.Title.RO, e.Title.EN, e.Title.FR, e.Title.DE,
		e.Description.RO, e.Description.EN, e.Description.FR, e.Description.DE, e.Location).Scan(&e.ID)
	return e, err
}

func (s *SQLStore) ListProgramEvents(ctx context.Context) ([]trailrace.ProgramEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day, start_time, end_time,
			title_ro, title_en, title_fr, title_de,
			description_ro, description_en, description_fr, description_de, location
		FROM program_events
		ORDER BY day, start_time, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []trailrace.ProgramEvent{}
	for rows.Next() {
		var e trailrace.ProgramEvent
		var day dbDay
		if err := rows.Scan(&e.ID, &day, &e.StartTime, &e.EndTime,
			&e.Title.RO, &e.Title.EN, &e.Title.FR, &e.Title.DE,
			&e.Description.RO, &e.Description.EN, &e.Description.FR, &e.Description.DE, &e.Location); err != nil {
			return nil, err
		}
		e.Day = string(day)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateSponsor(ctx context.Context, sp trailrace.Sponsor) (trailrace.Sponsor, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sponsors (name, description_ro, description_en, description_fr, description_de,
			logo_url, website, level, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, sp.Name, sp.Description.RO, sp.Description.EN, sp.Description.FR, sp.Description.DE,
		sp.LogoURL, sp.Website, sp.Level, sp.Order).Scan(&sp.ID)
	return sp, err
}

func (s *SQLStore) ListSponsors(ctx context.Context) ([]trailrace.Sponsor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description_ro, description_en, description_fr, description_de,
			logo_url, website, level, sort_order
		FROM sponsors
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []trailrace.Sponsor{}
	for rows.Next() {
		var sp trailrace.Sponsor
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Description.RO, &sp.Description.EN,
			&sp.Description.FR, &sp.Description.DE, &sp.LogoURL, &sp.Website, &sp.Level, &sp.Order); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

var _ Store = (*SQLStore)(nil)
