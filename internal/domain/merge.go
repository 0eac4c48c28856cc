package domain

import (
	"sort"
	"time"
)

// NationalMatrix is the outer join of all region tables: the date axis is
// the union of every region's dates, the column set is the disjoint union of
// every region's stations. Absent (date, station) combinations are explicit
// nulls. Complete is false until the merge has folded every region and
// passed its integrity checks; sinks must refuse an incomplete matrix.
type NationalMatrix struct {
	WideFrame
	RunID    string
	Regions  []string
	Complete bool
	MergedAt time.Time

	stationRegion map[string]string
}

// RegionOf returns the region that contributed a station column.
func (m NationalMatrix) RegionOf(station string) (string, bool) {
	region, ok := m.stationRegion[station]
	return region, ok
}

// NationalMerger folds region tables into the national matrix one at a time,
// so peak memory stays around two matrices' worth instead of all regions at
// once. Folding is commutative and associative: any fold order yields the
// same finalized matrix, because the axes are canonically sorted and station
// sets are disjoint by construction.
type NationalMerger struct {
	runID   string
	acc     WideFrame
	regions []string
	// stationRegion backs the cross-region uniqueness assertion.
	stationRegion map[string]string
	failed        error
}

// NewNationalMerger creates an empty merger for one pipeline run.
func NewNationalMerger(runID string) *NationalMerger {
	return &NationalMerger{
		runID:         runID,
		acc:           newWideFrame(""),
		stationRegion: make(map[string]string),
	}
}

// Fold merges one region table into the accumulator. A station identifier
// already claimed by another region is a fatal MergeIntegrityError; once one
// is raised the merger is poisoned and Finalize refuses to emit a matrix.
func (m *NationalMerger) Fold(table RegionTable) error {
	if m.failed != nil {
		return m.failed
	}

	for station := range table.stations {
		if other, taken := m.stationRegion[station]; taken {
			m.failed = &MergeIntegrityError{
				Reason:  "duplicate station identifier across regions",
				Station: station,
				Regions: []string{other, table.Region},
			}
			return m.failed
		}
		m.stationRegion[station] = table.Region
	}

	for d := range table.dates {
		m.acc.dates[d] = struct{}{}
	}
	for s := range table.stations {
		m.acc.stations[s] = struct{}{}
	}
	for key, value := range table.cells {
		m.acc.cells[key] = value
	}

	m.regions = append(m.regions, table.Region)
	return nil
}

// Finalize runs the post-merge integrity checks and returns the completed
// matrix. After Finalize the merger must not be folded into again.
func (m *NationalMerger) Finalize() (NationalMatrix, error) {
	if m.failed != nil {
		return NationalMatrix{}, m.failed
	}

	dates := m.acc.Dates()
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			m.failed = &MergeIntegrityError{Reason: "date axis not strictly increasing"}
			return NationalMatrix{}, m.failed
		}
	}

	regions := make([]string, len(m.regions))
	copy(regions, m.regions)
	sort.Strings(regions)

	return NationalMatrix{
		WideFrame:     m.acc,
		RunID:         m.runID,
		Regions:       regions,
		Complete:      true,
		MergedAt:      clock.Now(),
		stationRegion: m.stationRegion,
	}, nil
}

// MergeRegions folds a set of region tables in one call. The result is
// independent of the order of tables.
func MergeRegions(runID string, tables []RegionTable) (NationalMatrix, error) {
	merger := NewNationalMerger(runID)
	for _, t := range tables {
		if err := merger.Fold(t); err != nil {
			return NationalMatrix{}, err
		}
	}
	return merger.Finalize()
}
