// Package fssource feeds raw files into the pipeline from a directory tree:
// one sub-directory per region, one CSV per station, as dropped by the
// ingestion collaborator.
package fssource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// Source discovers region directories under a root and loads their CSVs.
// A directory belongs to a region when its name contains the pattern;
// the region name is the directory basename up to the first underscore
// (e.g. "Kerala_groundWater_2024" -> "Kerala").
type Source struct {
	root    string
	pattern string
	logger  *slog.Logger

	regionDirs map[string]string
}

// New creates a Source rooted at dir.
func New(root, pattern string, logger *slog.Logger) *Source {
	return &Source{root: root, pattern: pattern, logger: logger}
}

// Regions scans the root and returns the discovered region names, sorted.
func (s *Source) Regions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	s.regionDirs = make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(entry.Name(), s.pattern) {
			continue
		}
		region := regionName(entry.Name())
		if prev, dup := s.regionDirs[region]; dup {
			s.logger.Warn("duplicate region directory, keeping first",
				"region", region, "kept", prev, "ignored", entry.Name())
			continue
		}
		s.regionDirs[region] = filepath.Join(s.root, entry.Name())
	}

	regions := make([]string, 0, len(s.regionDirs))
	for r := range s.regionDirs {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions, nil
}

// Files loads every CSV in a region's directory, sorted by name. The file
// modification time stands in for the reporting period's recency; the portal
// re-exports a station's file whenever its period extends.
func (s *Source) Files(ctx context.Context, region string) ([]domain.RawFile, error) {
	dir, ok := s.regionDirs[region]
	if !ok {
		return nil, fmt.Errorf("unknown region %q", region)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read region dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	files := make([]domain.RawFile, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			// An unreadable file is skipped, not fatal: siblings still count.
			s.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		info, err := os.Stat(path)
		file := domain.RawFile{Region: region, Name: name, Content: content}
		if err == nil {
			file.ReportedAt = info.ModTime().UTC()
		}
		files = append(files, file)
	}
	return files, nil
}

// regionName strips the directory decoration from a region folder name.
func regionName(dir string) string {
	if i := strings.Index(dir, "_"); i > 0 {
		return dir[:i]
	}
	return dir
}
