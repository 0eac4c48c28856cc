package domain

import (
	"fmt"
	"strings"
)

// Validate inspects one raw file against its region schema and returns a
// typed verdict. It is total: truncated, empty or binary-garbage input
// produces a rejection verdict, never a panic or an error. Checks run in
// order and short-circuit on the first failure.
func Validate(file RawFile, schema RegionSchema) (verdict ValidationVerdict) {
	verdict = ValidationVerdict{
		FileID:    file.ID(),
		Region:    file.Region,
		Outcome:   Accepted,
		CheckedAt: clock.Now(),
	}

	// The csv reader should not panic on any input, but a verdict is owed
	// for every file regardless.
	defer func() {
		if r := recover(); r != nil {
			verdict.Outcome = RejectedOther
			verdict.Reason = fmt.Sprintf("panic while parsing: %v", r)
		}
	}()

	t, err := parseTable(file.Content)
	if err != nil {
		verdict.Outcome = RejectedOther
		verdict.Reason = "unreadable content: " + err.Error()
		return verdict
	}

	if len(t.header) == 0 || len(t.rows) == 0 {
		verdict.Outcome = RejectedEmpty
		verdict.Reason = "no data rows beyond header"
		return verdict
	}

	if missing := missingColumns(t, schema); len(missing) > 0 {
		verdict.Outcome = RejectedMissingColumns
		verdict.Reason = "missing required columns: " + strings.Join(missing, ", ")
		return verdict
	}

	if reason, ok := placeholderOnly(t, schema); ok {
		verdict.Outcome = RejectedPlaceholder
		verdict.Reason = reason
		return verdict
	}

	if len(t.rows) < schema.MinRows {
		verdict.Outcome = RejectedOther
		verdict.Reason = fmt.Sprintf("below minimum row count: %d < %d", len(t.rows), schema.MinRows)
		return verdict
	}

	return verdict
}

// missingColumns returns the required columns absent from the header. The
// district column is deliberately not required: files without one fall back
// to the sentinel district during reshaping instead of being rejected.
func missingColumns(t table, schema RegionSchema) []string {
	var missing []string
	for _, col := range []string{schema.DateColumn, schema.RegionColumn, schema.StationColumn} {
		if t.columnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if _, ok := schema.resolveValueColumn(t.header); !ok {
		missing = append(missing, schema.ValueColumn)
	}
	return missing
}

// placeholderOnly reports whether the value column carries nothing but
// placeholder sentinels. A file with at least one real reading passes even
// if some rows hold sentinels; those become nulls during reshaping.
func placeholderOnly(t table, schema RegionSchema) (string, bool) {
	valueCol, ok := schema.resolveValueColumn(t.header)
	if !ok {
		return "", false
	}
	idx := t.columnIndex(valueCol)

	sentinels := 0
	for _, row := range t.rows {
		v := cell(row, idx)
		if v == "" {
			continue
		}
		if isPlaceholder(v, schema.Placeholders) {
			sentinels++
			continue
		}
		return "", false
	}
	if sentinels == 0 {
		return "", false
	}
	return fmt.Sprintf("value column %q holds only placeholder values", valueCol), true
}

func isPlaceholder(v string, placeholders []string) bool {
	for _, p := range placeholders {
		if strings.EqualFold(v, p) {
			return true
		}
	}
	return false
}
