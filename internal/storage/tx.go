package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/normalize"
)

// Policy decides what InsertResult does when the result already exists.
type Policy int

const (
	// Skip keeps the stored result, preserving manual corrections.
	Skip Policy = iota
	// Replace overwrites the stored result with the new values.
	Replace
)

func (p Policy) String() string {
	if p == Replace {
		return "replace"
	}
	return "skip"
}

// Outcome is what InsertResult did.
type Outcome int

const (
	Created Outcome = iota + 1
	Skipped
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Skipped:
		return "skipped"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Tx is a write transaction.
type Tx struct {
	tx *sql.Tx
}

// EnsureEvent finds or creates the event row of a canonical event.
func (t *Tx) EnsureEvent(ctx context.Context, ev dictionary.Event) (int64, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (name, category, distance_meters, timed, lower_is_better, is_relay, gender_specific)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		ev.Name, ev.Category, nullFloat(ev.DistanceMeters), ev.Timed, ev.LowerIsBetter, ev.IsRelay, nullString(ev.Gender))
	if err != nil {
		return 0, fmt.Errorf("inserting event %q: %w", ev.Name, err)
	}

	var id int64
	if err := t.tx.QueryRowContext(ctx, `SELECT id FROM events WHERE name = ?`, ev.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("finding event %q: %w", ev.Name, err)
	}
	return id, nil
}

// EnsureMeet finds or creates a meet by name and date. The descriptive
// fields of an existing meet are updated to info. created reports whether
// the row is new.
func (t *Tx) EnsureMeet(ctx context.Context, info meet.Info) (id int64, created bool, err error) {
	level := info.Level
	if level == "" {
		level = meet.DefaultLevel
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO meets (name, meet_date, venue, location, season, level)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, meet_date) DO NOTHING`,
		info.Name, info.Date, info.Venue, info.Location, info.Season, level)
	if err != nil {
		return 0, false, fmt.Errorf("inserting meet %q: %w", info.Name, err)
	}
	created = affected(res) == 1

	if err := t.tx.QueryRowContext(ctx, `SELECT id FROM meets WHERE name = ? AND meet_date = ?`,
		info.Name, info.Date).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("finding meet %q: %w", info.Name, err)
	}

	if !created {
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE meets SET venue = ?, location = ?, season = ?, level = ? WHERE id = ?`,
			info.Venue, info.Location, info.Season, level, id); err != nil {
			return 0, false, fmt.Errorf("updating meet %q: %w", info.Name, err)
		}
	}
	return id, created, nil
}

// ResolveAthlete finds or creates an athlete.
//
// With a graduation year the full natural key is used, except that a single
// stored athlete of that name with an unknown year is reused. Without a year
// the name alone must identify at most one athlete; more than one is
// ErrAmbiguousAthlete.
func (t *Tx) ResolveAthlete(ctx context.Context, a normalize.Athlete) (id int64, created bool, err error) {
	candidates, err := t.athletesNamed(ctx, a.First, a.Last)
	if err != nil {
		return 0, false, err
	}

	if a.GradYear == nil {
		switch len(candidates) {
		case 0:
		case 1:
			return candidates[0].id, false, nil
		default:
			return 0, false, fmt.Errorf("%w: %d athletes named %s", ErrAmbiguousAthlete, len(candidates), a.FullName())
		}
	} else {
		for _, c := range candidates {
			if c.year.Valid && int(c.year.Int64) == *a.GradYear {
				return c.id, false, nil
			}
		}
		if len(candidates) == 1 && !candidates[0].year.Valid {
			return candidates[0].id, false, nil
		}
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO athletes (first_name, last_name, graduation_year, gender)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		a.First, a.Last, nullIntPtr(a.GradYear), nullString(a.Gender))
	if err != nil {
		return 0, false, fmt.Errorf("inserting athlete %s: %w", a.FullName(), err)
	}
	created = affected(res) == 1

	if err := t.tx.QueryRowContext(ctx, `
		SELECT id FROM athletes
		WHERE first_name = ? AND last_name = ? AND COALESCE(graduation_year, 0) = COALESCE(?, 0)`,
		a.First, a.Last, nullIntPtr(a.GradYear)).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("finding athlete %s: %w", a.FullName(), err)
	}
	return id, created, nil
}

type candidate struct {
	id   int64
	year sql.NullInt64
}

func (t *Tx) athletesNamed(ctx context.Context, first, last string) ([]candidate, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, graduation_year FROM athletes WHERE first_name = ? AND last_name = ? ORDER BY id`,
		first, last)
	if err != nil {
		return nil, fmt.Errorf("finding athletes named %s %s: %w", first, last, err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.year); err != nil {
			return nil, fmt.Errorf("scanning athlete: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Record is one result row to write. AthleteID is 0 for relay results,
// which are keyed by RelayTeam instead.
type Record struct {
	AthleteID int64
	EventID   int64
	MeetID    int64
	Gender    string
	RelayTeam string
	Mark      float64
	Display   string
	Place     *int
	Level     string
	Wind      *float64
	Heat      *int
	Lane      *int
	Flight    *int
	Notes     string
}

// InsertResult writes r under its natural key and applies policy when the
// result already exists.
func (t *Tx) InsertResult(ctx context.Context, r Record, policy Policy) (int64, Outcome, error) {
	level := r.Level
	if level == "" {
		level = meet.DefaultLevel
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO results (athlete_id, event_id, meet_id, gender, relay_team, mark, mark_display,
		                     place, level, wind, heat, lane, flight, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		nullID(r.AthleteID), r.EventID, r.MeetID, nullString(r.Gender), r.RelayTeam, r.Mark, r.Display,
		nullIntPtr(r.Place), level, nullFloatPtr(r.Wind), nullIntPtr(r.Heat), nullIntPtr(r.Lane), nullIntPtr(r.Flight), r.Notes)
	if err != nil {
		return 0, 0, fmt.Errorf("inserting result: %w", err)
	}
	if affected(res) == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, 0, fmt.Errorf("inserting result: %w", err)
		}
		return id, Created, nil
	}

	id, err := t.existingResult(ctx, r)
	if err != nil {
		return 0, 0, err
	}
	if policy == Skip {
		return id, Skipped, nil
	}

	if _, err := t.tx.ExecContext(ctx, `
		UPDATE results
		SET gender = ?, mark = ?, mark_display = ?, place = ?, level = ?, wind = ?, heat = ?, lane = ?, flight = ?, notes = ?
		WHERE id = ?`,
		nullString(r.Gender), r.Mark, r.Display, nullIntPtr(r.Place), level, nullFloatPtr(r.Wind),
		nullIntPtr(r.Heat), nullIntPtr(r.Lane), nullIntPtr(r.Flight), r.Notes, id); err != nil {
		return 0, 0, fmt.Errorf("replacing result %d: %w", id, err)
	}
	return id, Replaced, nil
}

func (t *Tx) existingResult(ctx context.Context, r Record) (int64, error) {
	var (
		id  int64
		row *sql.Row
	)
	if r.AthleteID == 0 {
		row = t.tx.QueryRowContext(ctx, `
			SELECT id FROM results
			WHERE event_id = ? AND meet_id = ? AND COALESCE(gender, '') = ? AND relay_team = ? AND relay_team <> ''`,
			r.EventID, r.MeetID, r.Gender, r.RelayTeam)
	} else {
		row = t.tx.QueryRowContext(ctx, `
			SELECT id FROM results WHERE athlete_id = ? AND event_id = ? AND meet_id = ?`,
			r.AthleteID, r.EventID, r.MeetID)
	}
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("finding existing result: %w", err)
	}
	return id, nil
}

// AddRelayMember records one leg of a relay result. A member already listed
// on the result is left alone.
func (t *Tx) AddRelayMember(ctx context.Context, resultID, athleteID int64, legOrder int) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO relay_members (result_id, athlete_id, leg_order)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`,
		resultID, athleteID, nullInt(legOrder)); err != nil {
		return fmt.Errorf("adding relay member to result %d: %w", resultID, err)
	}
	return nil
}

// ClearRelayMembers removes every leg of a relay result.
func (t *Tx) ClearRelayMembers(ctx context.Context, resultID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM relay_members WHERE result_id = ?`, resultID); err != nil {
		return fmt.Errorf("clearing relay members of result %d: %w", resultID, err)
	}
	return nil
}

// ClearResults deletes every result and relay member.
func (t *Tx) ClearResults(ctx context.Context) error {
	return t.deleteAll(ctx, "relay_members", "results")
}

// ClearMeets deletes every result, relay member and meet.
func (t *Tx) ClearMeets(ctx context.Context) error {
	return t.deleteAll(ctx, "relay_members", "results", "meets")
}

// ClearAll deletes every row of the mutable tables. Events are reference
// data and are kept.
func (t *Tx) ClearAll(ctx context.Context) error {
	return t.deleteAll(ctx, "relay_members", "results", "meets", "athletes")
}

func (t *Tx) deleteAll(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func nullFloatPtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
