// Package postgres implements the document store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/eventbot/internal/domain"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// Store reads and writes the event collections in PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open connection. Schema comes from the embedded migrations.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListTours returns all tours ordered by name.
func (s *Store) ListTours(ctx context.Context) ([]domain.Tour, error) {
	var tours []domain.Tour
	err := s.db.SelectContext(ctx, &tours,
		`SELECT name, description, free_places, requires_passport FROM tours ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

// GetTour returns the named tour.
func (s *Store) GetTour(ctx context.Context, name string) (domain.Tour, error) {
	var t domain.Tour
	err := s.db.GetContext(ctx, &t,
		`SELECT name, description, free_places, requires_passport FROM tours WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Tour{}, fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Tour{}, fmt.Errorf("get tour %q: %w", name, err)
	}
	return t, nil
}

// DecrementFreePlaces takes one seat in a single conditional update.
func (s *Store) DecrementFreePlaces(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tours SET free_places = free_places - 1 WHERE name = $1 AND free_places > 0`, name)
	if err != nil {
		return false, fmt.Errorf("decrement %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement %q: %w", name, err)
	}
	return n == 1, nil
}

// IncrementFreePlaces returns one seat to the tour.
func (s *Store) IncrementFreePlaces(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tours SET free_places = free_places + 1 WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("increment %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

const participantColumns = `user_id, tour, user_name, user_phone, user_passport, created_at`

// FindBooking returns the booking of userID.
func (s *Store) FindBooking(ctx context.Context, userID int64) (domain.Participant, error) {
	var p domain.Participant
	err := s.db.GetContext(ctx, &p,
		`SELECT `+participantColumns+` FROM tour_participants WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("find booking of %d: %w", userID, err)
	}
	return p, nil
}

// InsertBooking stores p. The primary key on user_id rejects a second booking.
func (s *Store) InsertBooking(ctx context.Context, p domain.Participant) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO tour_participants (`+participantColumns+`)
		 VALUES (:user_id, :tour, :user_name, :user_phone, :user_passport, :created_at)
		 ON CONFLICT (user_id) DO NOTHING`, p)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("booking of %d: %w", p.UserID, domain.ErrAlreadyBooked)
		}
		return fmt.Errorf("insert booking of %d: %w", p.UserID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking of %d: %w", p.UserID, domain.ErrAlreadyBooked)
	}
	return nil
}

// UpdatePassport sets the passport of an existing booking.
func (s *Store) UpdatePassport(ctx context.Context, userID int64, passport string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tour_participants SET user_passport = $2 WHERE user_id = $1`, userID, passport)
	if err != nil {
		return fmt.Errorf("update passport of %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// BookingsByTour returns the bookings of tour ordered by user id.
func (s *Store) BookingsByTour(ctx context.Context, tour string) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+participantColumns+` FROM tour_participants WHERE tour = $1 ORDER BY user_id`, tour)
	if err != nil {
		return nil, fmt.Errorf("bookings of %q: %w", tour, err)
	}
	return out, nil
}

// ExportBookings returns every booking row as a flat record of its columns.
func (s *Store) ExportBookings(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT * FROM tour_participants ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("export bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("export bookings: %w", err)
		}
		rec := make(domain.Record, len(row))
		for k, v := range row {
			if v == nil {
				continue
			}
			rec[k] = stringify(v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export bookings: %w", err)
	}
	return out, nil
}

type rosterRow struct {
	FullName string `db:"full_name"`
	Details  []byte `db:"details"`
}

// FindRoster returns records of collection whose name starts with prefix (case-sensitive).
func (s *Store) FindRoster(ctx context.Context, collection, prefix string) ([]domain.Record, error) {
	var rows []rosterRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT full_name, details FROM roster
		 WHERE collection = $1 AND full_name LIKE $2 ESCAPE '\'
		 ORDER BY id`, collection, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("find roster %s: %w", collection, err)
	}
	key := domain.RosterKeyField(collection)
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		rec := domain.Record{}
		if len(r.Details) > 0 {
			if err := json.Unmarshal(r.Details, &rec); err != nil {
				return nil, fmt.Errorf("decode roster %s/%s: %w", collection, r.FullName, err)
			}
		}
		rec[key] = r.FullName
		out = append(out, rec)
	}
	return out, nil
}

// UpsertUser records userID on first contact.
func (s *Store) UpsertUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, userID, s.now())
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", userID, err)
	}
	return nil
}

// UserIDs returns every known user id in ascending order.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// FindNotification returns the announcement scheduled for date and hour.
func (s *Store) FindNotification(ctx context.Context, date string, hour int) (domain.Notification, error) {
	var n domain.Notification
	err := s.db.GetContext(ctx, &n,
		`SELECT date, hour, text FROM notifications WHERE date = $1 AND hour = $2`, date, hour)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, fmt.Errorf("notification %s %d: %w", date, hour, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("find notification %s %d: %w", date, hour, err)
	}
	return n, nil
}

// PutTours inserts tours that do not exist yet; existing seat counts are kept.
func (s *Store) PutTours(ctx context.Context, tours []domain.Tour) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tours {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO tours (name, description, free_places, requires_passport)
				 VALUES (:name, :description, :free_places, :requires_passport)
				 ON CONFLICT (name) DO NOTHING`, t); err != nil {
				return fmt.Errorf("put tour %q: %w", t.Name, err)
			}
		}
		return nil
	})
}

// PutRoster fills collection when it is empty.
func (s *Store) PutRoster(ctx context.Context, collection string, records []domain.Record) error {
	key := domain.RosterKeyField(collection)
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM roster WHERE collection = $1`, collection); err != nil {
			return fmt.Errorf("count roster %s: %w", collection, err)
		}
		if count > 0 {
			return nil
		}
		for _, rec := range records {
			details := make(map[string]string, len(rec))
			for k, v := range rec {
				if k != key {
					details[k] = v
				}
			}
			raw, err := json.Marshal(details)
			if err != nil {
				return fmt.Errorf("encode roster %s/%s: %w", collection, rec[key], err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO roster (collection, full_name, details) VALUES ($1, $2, $3)`,
				collection, rec[key], raw); err != nil {
				return fmt.Errorf("put roster %s/%s: %w", collection, rec[key], err)
			}
		}
		return nil
	})
}

// PutNotifications inserts notifications whose date and hour are free.
func (s *Store) PutNotifications(ctx context.Context, items []domain.Notification) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, n := range items {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO notifications (date, hour, text) VALUES (:date, :hour, :text)
				 ON CONFLICT (date, hour) DO NOTHING`, n); err != nil {
				return fmt.Errorf("put notification %s %d: %w", n.Date, n.Hour, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// likePrefix escapes LIKE wildcards so prefix matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
