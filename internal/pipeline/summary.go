package pipeline

import (
	"sort"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// RegionSummary reports one region's run statistics.
type RegionSummary struct {
	Region   string
	Files    int
	Accepted int
	Rejected map[domain.Outcome]int
	Warnings int
	// Conflicts is how many overlapping cells the policy resolved.
	Conflicts int
	Stations  int
	Dates     int
	// Skipped is set when the region contributed nothing to the matrix.
	Skipped bool
}

// UsableRatio is the share of the region's files that were accepted.
func (r RegionSummary) UsableRatio() float64 {
	if r.Files == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Files)
}

// Summary reports a whole consolidation run.
type Summary struct {
	RunID          string
	Regions        []RegionSummary
	SkippedRegions []string
	TotalFiles     int
	TotalAccepted  int
	TotalConflicts int
	MatrixDates    int
	MatrixStations int
	Duration       time.Duration
}

func buildSummary(runID string, regions []RegionSummary, matrix domain.NationalMatrix, elapsed time.Duration) Summary {
	sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })

	s := Summary{
		RunID:          runID,
		Regions:        regions,
		MatrixDates:    matrix.NumDates(),
		MatrixStations: matrix.NumStations(),
		Duration:       elapsed,
	}
	for _, r := range regions {
		s.TotalFiles += r.Files
		s.TotalAccepted += r.Accepted
		s.TotalConflicts += r.Conflicts
		if r.Skipped {
			s.SkippedRegions = append(s.SkippedRegions, r.Region)
		}
	}
	return s
}
