package filter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/filter"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/normalize"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

// TestIntegration filters rows read back from a store.
func TestIntegration(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(storage.MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	sprint := dictionary.Event{Name: "100m", Category: "sprints", Timed: true, LowerIsBetter: true}
	meets := []meet.Info{
		{Name: "Poudre Invitational", Date: "2025-04-12", Season: "2025", Level: "varsity"},
		{Name: "City Championships", Date: "2024-05-03", Season: "2024", Level: "varsity"},
	}
	athletes := []normalize.Athlete{
		{First: "Jane", Last: "Doe", Gender: "F"},
		{First: "John", Last: "Smith", Gender: "M"},
	}

	require.NoError(t, s.WithTx(ctx, func(tx *storage.Tx) error {
		eventID, err := tx.EnsureEvent(ctx, sprint)
		if err != nil {
			return err
		}
		for i, m := range meets {
			meetID, _, err := tx.EnsureMeet(ctx, m)
			if err != nil {
				return err
			}
			for j, a := range athletes {
				athleteID, _, err := tx.ResolveAthlete(ctx, a)
				if err != nil {
					return err
				}
				if _, _, err := tx.InsertResult(ctx, storage.Record{
					AthleteID: athleteID,
					EventID:   eventID,
					MeetID:    meetID,
					Gender:    a.Gender,
					Mark:      12.0 + float64(i+j),
					Display:   "12.00",
					Level:     m.Level,
				}, storage.Skip); err != nil {
					return err
				}
			}
		}
		return nil
	}))

	rows, err := s.ResultRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	t.Run("Filter by season and gender", func(t *testing.T) {
		f, err := filter.Parse("season:2025 gender:girls")
		require.NoError(t, err)

		got := f.Apply(rows)
		require.Len(t, got, 1)
		require.Equal(t, "Jane Doe", got[0].Athlete)
		require.Equal(t, "Poudre Invitational", got[0].Meet)
	})

	t.Run("Filter by date range", func(t *testing.T) {
		f, err := filter.Parse("date:2024-01-01..2024-12-31")
		require.NoError(t, err)
		require.Len(t, f.Apply(rows), 2)
	})

	t.Run("Filter personal records", func(t *testing.T) {
		f, err := filter.Parse(`athlete:"john smith"`)
		require.NoError(t, err)

		prs := f.Apply(aggregate.PersonalRecords(rows))
		require.Len(t, prs, 1)
		require.InDelta(t, 13.0, prs[0].Mark, 1e-9)
	})
}
