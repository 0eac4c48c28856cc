package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// dateLayouts are the date formats seen across 30 years of portal exports,
// tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
}

// ParseDate parses a portal date string into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders a date axis value in the canonical ISO form.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// table is a parsed CSV: a trimmed header plus data rows. Rows may be ragged;
// the csv reader runs with FieldsPerRecord disabled because the portal
// truncates trailing cells.
type table struct {
	header []string
	rows   [][]string
}

// parseTable reads CSV content leniently. It returns an error for content the
// csv reader cannot make sense of at all (e.g. binary garbage with stray
// quotes); callers translate that into a rejection, never a panic.
func parseTable(content []byte) (table, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var t table
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table{}, fmt.Errorf("read csv: %w", err)
		}
		if t.header == nil {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
			t.header = record
			continue
		}
		t.rows = append(t.rows, record)
	}
	if t.header == nil {
		return table{}, nil
	}
	return t, nil
}

// columnIndex returns the position of a column in the header, or -1.
func (t table) columnIndex(name string) int {
	for i, col := range t.header {
		if col == name {
			return i
		}
	}
	return -1
}

// cell returns the trimmed cell at (row, col), or "" when the row is too short.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// StationRecord is one long-format observation: a station, a date and a
// level reading. Level is nil for a missing reading.
type StationRecord struct {
	Region      string
	District    string
	StationCode string
	Date        time.Time
	Level       *float64
}

// StationID flattens the hierarchical identifier to its canonical string form.
func (r StationRecord) StationID() string {
	return r.Region + StationSeparator + r.District + StationSeparator + r.StationCode
}

// cellKey addresses one (date, station) cell.
type cellKey struct {
	date    time.Time
	station string
}

// WideFrame is a date-by-station table. The date axis is strictly increasing
// with no duplicates; stations are unique. Absent cells are nulls, never
// zeros. Frames are built by the reshaper and consolidator and treated as
// immutable afterwards.
type WideFrame struct {
	Region string
	// SourceFile and ReportedAt carry provenance for frames built from a
	// single file; the consolidator uses ReportedAt to order conflicts.
	SourceFile string
	ReportedAt time.Time

	dates    map[time.Time]struct{}
	stations map[string]struct{}
	cells    map[cellKey]float64
}

// newWideFrame allocates an empty frame for a region.
func newWideFrame(region string) WideFrame {
	return WideFrame{
		Region:   region,
		dates:    make(map[time.Time]struct{}),
		stations: make(map[string]struct{}),
		cells:    make(map[cellKey]float64),
	}
}

// set records a cell value, registering its axes. Overwrites silently;
// callers enforce their duplicate policy before calling.
func (f *WideFrame) set(date time.Time, station string, value float64) {
	f.dates[date] = struct{}{}
	f.stations[station] = struct{}{}
	f.cells[cellKey{date, station}] = value
}

// addStation registers a station column even if no cell ever lands in it.
func (f *WideFrame) addStation(station string) {
	f.stations[station] = struct{}{}
}

// has reports whether a cell is present (non-null).
func (f WideFrame) has(date time.Time, station string) bool {
	_, ok := f.cells[cellKey{date, station}]
	return ok
}

// Value returns the cell at (date, station) and whether it is non-null.
func (f WideFrame) Value(date time.Time, station string) (float64, bool) {
	v, ok := f.cells[cellKey{date, station}]
	return v, ok
}

// Dates returns the date axis in strictly increasing order.
func (f WideFrame) Dates() []time.Time {
	out := make([]time.Time, 0, len(f.dates))
	for d := range f.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Stations returns the station columns in lexical order.
func (f WideFrame) Stations() []string {
	out := make([]string, 0, len(f.stations))
	for s := range f.stations {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// NumDates returns the length of the date axis.
func (f WideFrame) NumDates() int { return len(f.dates) }

// NumStations returns the number of station columns.
func (f WideFrame) NumStations() int { return len(f.stations) }

// NumCells returns the number of non-null cells.
func (f WideFrame) NumCells() int { return len(f.cells) }
