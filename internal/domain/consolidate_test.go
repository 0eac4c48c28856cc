package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame constructs a single-file frame directly, bypassing CSV parsing.
func buildFrame(region, file string, reportedAt time.Time, cells map[string]map[string]float64) WideFrame {
	frame := newWideFrame(region)
	frame.SourceFile = file
	frame.ReportedAt = reportedAt
	for dateStr, stations := range cells {
		date, err := ParseDate(dateStr)
		if err != nil {
			panic(err)
		}
		for station, v := range stations {
			frame.set(date, station, v)
		}
	}
	return frame
}

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConsolidateRegion(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unions dates and stations", func(t *testing.T) {
		a := buildFrame("R1", "a.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
			"2020-01-06": {"R1_D1_S001": 12.4},
		})
		b := buildFrame("R1", "b.csv", older, map[string]map[string]float64{
			"2020-01-04": {"R1_D2_S002": 7.9},
			"2020-01-06": {"R1_D2_S002": 8.0},
		})

		table, err := ConsolidateRegion("R1", []WideFrame{a, b}, LastWriteWins)
		require.NoError(t, err)

		assert.Equal(t, 2, table.FilesMerged)
		assert.Equal(t, []string{"R1_D1_S001", "R1_D2_S002"}, table.Stations())

		dates := table.Dates()
		require.Len(t, dates, 3)
		for i := 1; i < len(dates); i++ {
			assert.True(t, dates[i-1].Before(dates[i]), "date axis must be strictly increasing")
		}

		// Cells absent from a file stay null.
		_, ok := table.Value(day("2020-01-04"), "R1_D1_S001")
		assert.False(t, ok)
	})

	t.Run("overlapping cell resolves last-write-wins with one conflict", func(t *testing.T) {
		a := buildFrame("R1", "a.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
		})
		b := buildFrame("R1", "b.csv", newer, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.5},
		})

		table, err := ConsolidateRegion("R1", []WideFrame{a, b}, LastWriteWins)
		require.NoError(t, err)

		v, ok := table.Value(day("2020-01-05"), "R1_D1_S001")
		require.True(t, ok)
		assert.Equal(t, 12.5, v)

		require.Len(t, table.Conflicts, 1)
		c := table.Conflicts[0]
		assert.Equal(t, "R1_D1_S001", c.Station)
		assert.Equal(t, 12.5, c.Kept)
		assert.Equal(t, 12.3, c.Discarded)
		assert.Equal(t, "b.csv", c.KeptFile)
		assert.Equal(t, "a.csv", c.DiscardedFile)
	})

	t.Run("keep-first policy preserves the earlier file's value", func(t *testing.T) {
		a := buildFrame("R1", "a.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
		})
		b := buildFrame("R1", "b.csv", newer, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.5},
		})

		table, err := ConsolidateRegion("R1", []WideFrame{a, b}, KeepFirst)
		require.NoError(t, err)

		v, _ := table.Value(day("2020-01-05"), "R1_D1_S001")
		assert.Equal(t, 12.3, v)
		require.Len(t, table.Conflicts, 1)
		assert.Equal(t, 12.3, table.Conflicts[0].Kept)
	})

	t.Run("recency tie keeps first-seen and still logs", func(t *testing.T) {
		a := buildFrame("R1", "a.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
		})
		b := buildFrame("R1", "b.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.5},
		})

		table, err := ConsolidateRegion("R1", []WideFrame{b, a}, LastWriteWins)
		require.NoError(t, err)

		// Ties order by file name, so a.csv is first-seen regardless of input order.
		v, _ := table.Value(day("2020-01-05"), "R1_D1_S001")
		assert.Equal(t, 12.3, v)
		assert.Len(t, table.Conflicts, 1)
	})

	t.Run("identical duplicate values are not conflicts", func(t *testing.T) {
		a := buildFrame("R1", "a.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
		})
		b := buildFrame("R1", "b.csv", newer, map[string]map[string]float64{
			"2020-01-05": {"R1_D1_S001": 12.3},
		})

		table, err := ConsolidateRegion("R1", []WideFrame{a, b}, LastWriteWins)
		require.NoError(t, err)
		assert.Empty(t, table.Conflicts)
	})

	t.Run("result is independent of input order", func(t *testing.T) {
		frames := []WideFrame{
			buildFrame("R1", "a.csv", older, map[string]map[string]float64{
				"2020-01-05": {"R1_D1_S001": 12.3, "R1_D1_S002": 4.0},
			}),
			buildFrame("R1", "b.csv", newer, map[string]map[string]float64{
				"2020-01-05": {"R1_D1_S001": 12.5},
				"2020-01-07": {"R1_D1_S003": 9.9},
			}),
			buildFrame("R1", "c.csv", older.Add(24*time.Hour), map[string]map[string]float64{
				"2020-01-06": {"R1_D1_S001": 12.4},
			}),
		}

		want, err := ConsolidateRegion("R1", frames, LastWriteWins)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(42))
		for range 5 {
			shuffled := make([]WideFrame, len(frames))
			copy(shuffled, frames)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

			got, err := ConsolidateRegion("R1", shuffled, LastWriteWins)
			require.NoError(t, err)
			assert.True(t, cmp.Equal(want.WideFrame, got.WideFrame, frameComparer),
				cmp.Diff(want.WideFrame, got.WideFrame, frameComparer))
			assert.Equal(t, want.Conflicts, got.Conflicts)
		}
	})

	t.Run("frame from another region is an error", func(t *testing.T) {
		stray := buildFrame("R2", "x.csv", older, map[string]map[string]float64{
			"2020-01-05": {"R2_D1_S001": 1.0},
		})
		_, err := ConsolidateRegion("R1", []WideFrame{stray}, LastWriteWins)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `region "R2"`)
	})
}

func TestParseConflictPolicy(t *testing.T) {
	p, err := ParseConflictPolicy("last-write-wins")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, p)

	p, err = ParseConflictPolicy("keep-first")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	_, err = ParseConflictPolicy("average")
	require.Error(t, err)
}
