// Package csvsink serializes the national matrix to a CSV file for the
// data-lake collaborator to pick up.
package csvsink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// ErrIncompleteMatrix is returned when a matrix that never finished merging
// is offered for persistence. Partial results must not be mistaken for a
// complete national matrix.
var ErrIncompleteMatrix = errors.New("refusing to write incomplete national matrix")

// Sink writes matrices to a fixed destination path.
type Sink struct {
	path string
}

// New creates a Sink targeting path.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Write serializes the matrix: a Date first column in ISO form, then one
// column per station in lexical order; null cells are empty. The file is
// written to a temp name and renamed so a cancelled run never leaves a
// half-written matrix at the destination.
func (s *Sink) Write(matrix domain.NationalMatrix) error {
	if !matrix.Complete {
		return ErrIncompleteMatrix
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeMatrix(tmp, matrix); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("move matrix into place: %w", err)
	}
	return nil
}

func writeMatrix(f *os.File, matrix domain.NationalMatrix) error {
	w := csv.NewWriter(f)

	stations := matrix.Stations()
	header := make([]string, 0, len(stations)+1)
	header = append(header, "Date")
	header = append(header, stations...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, date := range matrix.Dates() {
		row[0] = domain.FormatDate(date)
		for i, station := range stations {
			if v, ok := matrix.Value(date, station); ok {
				row[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", row[0], err)
		}
	}

	w.Flush()
	return w.Error()
}
