package domain

import "time"

// RawFile is one per-station CSV export as delivered by the ingestion
// collaborator. It is immutable; every later stage produces new values.
type RawFile struct {
	// Region is the administrative region the file was grouped under.
	Region string
	// Name identifies the file inside its region (usually the filename).
	Name string
	// Content is the raw CSV bytes, possibly malformed or even binary garbage.
	Content []byte
	// ReportedAt is the end of the file's reporting period, taken from the
	// export metadata. It orders overlapping files for conflict resolution.
	ReportedAt time.Time
}

// ID returns the file's identifier used in audit entries and logs.
func (f RawFile) ID() string {
	if f.Region == "" {
		return f.Name
	}
	return f.Region + "/" + f.Name
}

// Outcome classifies a file's validation disposition.
type Outcome string

const (
	Accepted               Outcome = "accepted"
	RejectedEmpty          Outcome = "rejected_empty"
	RejectedMissingColumns Outcome = "rejected_missing_columns"
	RejectedPlaceholder    Outcome = "rejected_placeholder"
	RejectedOther          Outcome = "rejected_other"
)

// Rejected reports whether the outcome is any of the rejection classes.
func (o Outcome) Rejected() bool { return o != Accepted }

// ValidationVerdict is the typed result of validating one raw file.
// Created once per file and never mutated.
type ValidationVerdict struct {
	FileID    string    `json:"file_id"`
	Region    string    `json:"region"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
