// Package domain models groundwater-level monitoring data and the
// consolidation operations that turn per-station CSV exports into one
// national wide-format time series.
//
// # Data Source
//
// Groundwater levels are exported by the national water-resources portal as
// one CSV file per monitoring well, grouped into region directories (23
// administrative regions, ~24,143 wells, 30 years of daily readings). The
// upstream scraper drops the raw files on disk; this service never talks to
// the portal itself.
//
// # Source Data Conventions
//
// Long format:
//
//	One row per (station, date, level) observation. Expected columns are
//	Date, State, District, Station_name and level, but the portal is not
//	consistent: column names carry stray whitespace, the level column is
//	sometimes renamed ("Water level", "level(m)", ...), and some regions
//	omit the District column entirely.
//
// Placeholder files:
//
//	Wells with no readings export as a single-row file whose only cell is
//	the sentinel "No Data Available". These carry no data and are rejected
//	outright. Roughly 95% of raw files fail validation one way or another.
//
// Station identity:
//
//	A well is identified by the triple (Region, District, StationCode),
//	flattened to "Region_District_StationCode" with underscores. The triple
//	is globally unique; the bare station code is not. Stations missing
//	district metadata fall back to the sentinel district "UNKNOWN" rather
//	than failing the whole file.
//
// Dates:
//
//	ISO "2006-01-02" in recent exports; older files use "02-01-2006" or
//	"02/01/2006". All are normalized to UTC midnight.
//
// # Consolidation
//
// Accepted files are pivoted long-to-wide ([Reshape]), stacked vertically
// per region ([ConsolidateRegion]) and folded into the national matrix one
// region at a time ([NationalMerger]). Overlapping files inside a region can
// disagree on a (date, station) cell; the conflict policy resolves this
// deterministically, preferring the file with the later reporting period.
// Duplicate station identifiers across regions are a structural integrity
// violation and abort the merge.
package domain
