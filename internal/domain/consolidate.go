package domain

import (
	"fmt"
	"sort"
	"time"
)

// ConflictPolicy selects how overlapping files that disagree on a
// (date, station) cell are resolved within a region.
type ConflictPolicy string

const (
	// LastWriteWins keeps the value from the file with the later reporting
	// period; ties keep the first-seen value. The recommended default.
	LastWriteWins ConflictPolicy = "last-write-wins"
	// KeepFirst always keeps the first-seen value.
	KeepFirst ConflictPolicy = "keep-first"
)

// ParseConflictPolicy validates a policy name from configuration.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case LastWriteWins, KeepFirst:
		return ConflictPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// Conflict records one resolved cell disagreement between two source files.
type Conflict struct {
	Region        string
	Station       string
	Date          time.Time
	Kept          float64
	Discarded     float64
	KeptFile      string
	DiscardedFile string
}

// RegionTable is one region's consolidated wide frame: the vertical union of
// all the region's accepted per-file frames, one value per (date, station).
type RegionTable struct {
	WideFrame
	FilesMerged int
	Conflicts   []Conflict
}

// ConsolidateRegion vertically stacks a region's frames. The output date
// axis is the sorted union of all input dates with no duplicates; the column
// set is the union of all station identifiers. Cell disagreements are
// resolved by the policy and every resolution is recorded as a Conflict.
//
// Frames are folded in (ReportedAt, SourceFile) order so the result is
// independent of input ordering.
func ConsolidateRegion(region string, frames []WideFrame, policy ConflictPolicy) (RegionTable, error) {
	ordered := make([]WideFrame, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ReportedAt.Equal(ordered[j].ReportedAt) {
			return ordered[i].ReportedAt.Before(ordered[j].ReportedAt)
		}
		return ordered[i].SourceFile < ordered[j].SourceFile
	})

	out := RegionTable{WideFrame: newWideFrame(region)}
	// cellSource tracks which file supplied each kept cell, for conflict records.
	type provenance struct {
		file       string
		reportedAt time.Time
	}
	cellSource := make(map[cellKey]provenance)

	for _, frame := range ordered {
		if frame.Region != region {
			return RegionTable{}, fmt.Errorf("consolidate %s: frame from region %q", region, frame.Region)
		}
		out.FilesMerged++

		for s := range frame.stations {
			out.addStation(s)
		}
		for d := range frame.dates {
			out.dates[d] = struct{}{}
		}

		for key, value := range frame.cells {
			prev, occupied := out.cells[key]
			if !occupied {
				out.cells[key] = value
				cellSource[key] = provenance{frame.SourceFile, frame.ReportedAt}
				continue
			}
			if prev == value {
				continue
			}

			src := cellSource[key]
			overwrite := policy == LastWriteWins && frame.ReportedAt.After(src.reportedAt)
			conflict := Conflict{
				Region:  region,
				Station: key.station,
				Date:    key.date,
			}
			if overwrite {
				conflict.Kept = value
				conflict.KeptFile = frame.SourceFile
				conflict.Discarded = prev
				conflict.DiscardedFile = src.file
				out.cells[key] = value
				cellSource[key] = provenance{frame.SourceFile, frame.ReportedAt}
			} else {
				conflict.Kept = prev
				conflict.KeptFile = src.file
				conflict.Discarded = value
				conflict.DiscardedFile = frame.SourceFile
			}
			out.Conflicts = append(out.Conflicts, conflict)
		}
	}

	// Map iteration above is unordered; sort for a stable conflict log.
	sort.Slice(out.Conflicts, func(i, j int) bool {
		if out.Conflicts[i].Station != out.Conflicts[j].Station {
			return out.Conflicts[i].Station < out.Conflicts[j].Station
		}
		return out.Conflicts[i].Date.Before(out.Conflicts[j].Date)
	})

	return out, nil
}
