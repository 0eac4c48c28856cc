package domain

import (
	"fmt"
	"strconv"
)

// RowWarning records a data-quality anomaly in one source row. Warnings are
// logged and counted; they never fail the file.
type RowWarning struct {
	Line   int // 1-based line in the source file, header is line 1
	Reason string
}

// Reshape pivots an accepted file's long-format rows into a wide
// date-by-station frame. It is deterministic and idempotent: reshaping the
// same file twice yields identical frames.
//
// Duplicate (date, station) rows keep the first occurrence and emit a
// warning; they are never averaged and never fail the file. Rows with blank
// district metadata fall back to [UnknownDistrict]. Rows whose date or value
// cannot be parsed are skipped with a warning. A file with no usable
// observation at all returns a [ReshapeError], treated by callers as a late
// validation failure.
func Reshape(file RawFile, schema RegionSchema) (WideFrame, []RowWarning, error) {
	t, err := parseTable(file.Content)
	if err != nil {
		return WideFrame{}, nil, &ReshapeError{FileID: file.ID(), Reason: err.Error()}
	}

	valueCol, ok := schema.resolveValueColumn(t.header)
	if !ok {
		return WideFrame{}, nil, &ReshapeError{FileID: file.ID(), Reason: "value column missing"}
	}
	dateIdx := t.columnIndex(schema.DateColumn)
	regionIdx := t.columnIndex(schema.RegionColumn)
	districtIdx := t.columnIndex(schema.DistrictColumn)
	stationIdx := t.columnIndex(schema.StationColumn)
	valueIdx := t.columnIndex(valueCol)
	if dateIdx < 0 || stationIdx < 0 {
		return WideFrame{}, nil, &ReshapeError{FileID: file.ID(), Reason: "key columns missing"}
	}

	frame := newWideFrame(file.Region)
	frame.SourceFile = file.ID()
	frame.ReportedAt = file.ReportedAt

	var warnings []RowWarning
	warn := func(line int, format string, args ...any) {
		warnings = append(warnings, RowWarning{Line: line, Reason: fmt.Sprintf(format, args...)})
	}

	seen := make(map[cellKey]struct{}, len(t.rows))
	for i, row := range t.rows {
		line := i + 2

		rec := StationRecord{
			Region:      cell(row, regionIdx),
			District:    cell(row, districtIdx),
			StationCode: cell(row, stationIdx),
		}
		if rec.Region == "" {
			rec.Region = file.Region
		}
		if rec.District == "" {
			rec.District = UnknownDistrict
		}
		if rec.StationCode == "" {
			warn(line, "blank station code")
			continue
		}

		date, err := ParseDate(cell(row, dateIdx))
		if err != nil {
			warn(line, "bad date: %v", err)
			continue
		}
		rec.Date = date

		station := rec.StationID()
		key := cellKey{date, station}
		if _, dup := seen[key]; dup {
			warn(line, "duplicate observation for %s on %s, keeping first", station, FormatDate(date))
			continue
		}
		seen[key] = struct{}{}

		// A null reading still claims the station column and the date row.
		frame.addStation(station)
		frame.dates[date] = struct{}{}

		raw := cell(row, valueIdx)
		if raw == "" || isPlaceholder(raw, schema.Placeholders) {
			continue
		}
		level, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			warn(line, "bad level %q", raw)
			continue
		}
		frame.set(date, station, level)
	}

	if frame.NumDates() == 0 {
		return WideFrame{}, warnings, &ReshapeError{FileID: file.ID(), Reason: "no parseable observations"}
	}
	return frame, warnings, nil
}
