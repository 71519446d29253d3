package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

const participantColumns = `id, first_name, last_name, email, phone, country,
	birth_date, age, gender, race_id, bib_number, status, medical_info,
	is_ema_participant, tshirt_size, emergency_contact_name, emergency_contact_phone,
	registration_date, payment_link, payment_link_created_at, payment_link_expiry, payment_token`

func scanParticipant(row scanner) (trailrace.Participant, error) {
	var (
		p                       trailrace.Participant
		birth, registered       dbTime
		linkCreated, linkExpiry dbTime
		link, token             sql.NullString
	)
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Country,
		&birth, &p.Age, &p.Gender, &p.RaceID, &p.BibNumber, &p.Status, &p.MedicalInfo,
		&p.IsEMAParticipant, &p.TShirtSize, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&registered, &link, &linkCreated, &linkExpiry, &token)
	if err != nil {
		return p, err
	}
	p.BirthDate = birth.Time
	p.RegistrationDate = registered.Time

	if token.Valid {
		p.Payment = &trailrace.PaymentLink{
			Link:      link.String,
			Token:     token.String,
			CreatedAt: linkCreated.Time,
			ExpiresAt: linkExpiry.Time,
		}
	}
	return p, nil
}

// maxBibAttempts bounds how many sequence numbers CreateParticipant skips
// when a bib is already taken, e.g. by rows imported with explicit bibs.
const maxBibAttempts = 5

func (s *SQLStore) CreateParticipant(ctx context.Context, p trailrace.Participant, bibPrefix string) (trailrace.Participant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()

	if p.Status == "" {
		p.Status = trailrace.StatusPending
	}

	for range maxBibAttempts {
		var seq int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO race_bib_counters (race_id, last_seq) VALUES (?, 1)
			ON CONFLICT (race_id) DO UPDATE SET last_seq = last_seq + 1
			RETURNING last_seq
		`, p.RaceID).Scan(&seq)
		if isForeignKeyViolation(err) {
			return p, ErrNotFound
		}
		if err != nil {
			return p, fmt.Errorf("allocating bib: %w", err)
		}
		p.BibNumber = trailrace.FormatBib(bibPrefix, seq)

		err = tx.QueryRowContext(ctx, `
			INSERT INTO participants (first_name, last_name, email, phone, country,
				birth_date, age, gender, race_id, bib_number, status, medical_info,
				is_ema_participant, tshirt_size, emergency_contact_name, emergency_contact_phone,
				registration_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, p.FirstName, p.LastName, p.Email, p.Phone, p.Country,
			p.BirthDate.Format(dateLayout), p.Age, p.Gender, p.RaceID, p.BibNumber, p.Status, p.MedicalInfo,
			p.IsEMAParticipant, p.TShirtSize, p.EmergencyContactName, p.EmergencyContactPhone,
			formatTime(p.RegistrationDate),
		).Scan(&p.ID)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return p, err
		}
		return p, tx.Commit()
	}
	return p, fmt.Errorf("bib %s: %w", p.BibNumber, ErrConflict)
}

func (s *SQLStore) GetParticipant(ctx context.Context, id int64) (trailrace.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) ParticipantByPaymentToken(ctx context.Context, token string) (trailrace.Participant, error) {
	if token == "" {
		return trailrace.Participant{}, ErrNotFound
	}
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE payment_token = ? ORDER BY id DESC LIMIT 1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

// ListParticipants narrows by the indexed equality fields in SQL and
// applies the full filter in Go, so name search and age categories
// behave the same as in MemStore.
func (s *SQLStore) ListParticipants(ctx context.Context, f trailrace.ParticipantFilter, now time.Time) ([]trailrace.Participant, error) {
	var (
		where []string
		args  []any
	)
	if f.RaceID != 0 {
		where = append(where, "race_id = ?")
		args = append(args, f.RaceID)
	}
	if f.Country != "" {
		where = append(where, "country = ?")
		args = append(args, f.Country)
	}
	if f.Gender != "" {
		where = append(where, "gender = ?")
		args = append(args, f.Gender)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.EMA != nil {
		where = append(where, "is_ema_participant = ?")
		args = append(args, *f.EMA)
	}

	q := `SELECT ` + participantColumns + ` FROM participants`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []trailrace.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		if f.Match(p, now) {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}

func (s *SQLStore) SetPaymentLink(ctx context.Context, id int64, link trailrace.PaymentLink) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET
			payment_link = ?,
			payment_link_created_at = ?,
			payment_link_expiry = ?,
			payment_token = ?
		WHERE id = ?
	`, link.Link, formatTime(link.CreatedAt), formatTime(link.ExpiresAt), link.Token, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) TransitionStatus(ctx context.Context, id int64, to trailrace.Status, from ...trailrace.Status) (trailrace.Participant, bool, error) {
	if len(from) == 0 {
		return trailrace.Participant{}, false, errors.New("transition needs at least one source status")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := []any{to, id}
	for _, st := range from {
		args = append(args, st)
	}

	p, err := scanParticipant(s.db.QueryRowContext(ctx, `
		UPDATE participants SET status = ?
		WHERE id = ? AND status IN (`+placeholders+`)
		RETURNING `+participantColumns, args...))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return p, false, err
	}

	p, err = s.GetParticipant(ctx, id)
	return p, false, err
}
