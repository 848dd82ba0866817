package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
)

const rowColumns = `result_id, athlete_id, athlete, graduation_year, gender, event_id, event, category,
	lower_is_better, is_relay, mark, mark_display, meet_id, meet, meet_date, season, level, relay_team`

// ResultRows returns every stored result joined with its athlete, event and
// meet, in result id order.
func (s *Store) ResultRows(ctx context.Context) ([]aggregate.Row, error) {
	return s.rows(ctx, `SELECT `+rowColumns+` FROM v_result_details ORDER BY result_id`)
}

// PersonalRecordsView reads v_personal_records.
func (s *Store) PersonalRecordsView(ctx context.Context) ([]aggregate.Row, error) {
	rows, err := s.rows(ctx, `SELECT `+rowColumns+` FROM v_personal_records`)
	if err != nil {
		return nil, err
	}
	aggregate.Sort(rows)
	return rows, nil
}

// TeamBestsView reads v_team_bests, or v_team_bests_by_season restricted to
// season when season is set.
func (s *Store) TeamBestsView(ctx context.Context, season string) ([]aggregate.Row, error) {
	var (
		rows []aggregate.Row
		err  error
	)
	if season == "" {
		rows, err = s.rows(ctx, `SELECT `+rowColumns+` FROM v_team_bests`)
	} else {
		rows, err = s.rows(ctx, `SELECT `+rowColumns+` FROM v_team_bests_by_season WHERE season = ?`, season)
	}
	if err != nil {
		return nil, err
	}
	aggregate.Sort(rows)
	return rows, nil
}

// Leg is one stored relay member.
type Leg struct {
	Order     int    `json:"order"`
	AthleteID int64  `json:"athlete_id"`
	Athlete   string `json:"athlete"`
}

// RelayLegs returns the members of a relay result in leg order.
func (s *Store) RelayLegs(ctx context.Context, resultID int64) ([]Leg, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(rm.leg_order, 0), a.id, TRIM(a.first_name || ' ' || a.last_name)
		FROM relay_members rm
		JOIN athletes a ON a.id = rm.athlete_id
		WHERE rm.result_id = ?
		ORDER BY rm.leg_order, rm.id`, resultID)
	if err != nil {
		return nil, fmt.Errorf("querying relay members: %w", err)
	}
	defer rows.Close()

	legs := []Leg{}
	for rows.Next() {
		var l Leg
		if err := rows.Scan(&l.Order, &l.AthleteID, &l.Athlete); err != nil {
			return nil, fmt.Errorf("scanning relay member: %w", err)
		}
		legs = append(legs, l)
	}
	return legs, rows.Err()
}

func (s *Store) rows(ctx context.Context, query string, args ...interface{}) ([]aggregate.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	out := []aggregate.Row{}
	for rows.Next() {
		var (
			r         aggregate.Row
			athleteID sql.NullInt64
			gradYear  sql.NullInt64
		)
		if err := rows.Scan(
			&r.ResultID, &athleteID, &r.Athlete, &gradYear, &r.Gender, &r.EventID, &r.Event, &r.Category,
			&r.LowerIsBetter, &r.IsRelay, &r.Mark, &r.Display, &r.MeetID, &r.Meet, &r.MeetDate, &r.Season,
			&r.Level, &r.RelayTeam,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.AthleteID = athleteID.Int64
		if gradYear.Valid {
			year := int(gradYear.Int64)
			r.GradYear = &year
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	return out, nil
}
