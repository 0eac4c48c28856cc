package domain

import "fmt"

// ReshapeError marks an accepted file that turned out to be malformed during
// pivoting. It is a late validation failure: the file is skipped and logged,
// sibling files are unaffected.
type ReshapeError struct {
	FileID string
	Reason string
}

func (e *ReshapeError) Error() string {
	return fmt.Sprintf("reshape %s: %s", e.FileID, e.Reason)
}

// MergeIntegrityError is a structural violation detected while folding region
// tables into the national matrix. It is fatal to the run: no matrix may be
// emitted as complete once one is raised.
type MergeIntegrityError struct {
	Reason  string
	Station string
	Regions []string
}

func (e *MergeIntegrityError) Error() string {
	if e.Station != "" {
		return fmt.Sprintf("merge integrity: %s (station %s, regions %v)", e.Reason, e.Station, e.Regions)
	}
	return "merge integrity: " + e.Reason
}
