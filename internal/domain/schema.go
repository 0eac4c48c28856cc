package domain

import "strings"

// UnknownDistrict is the sentinel district label for stations whose export
// carries no district metadata.
const UnknownDistrict = "UNKNOWN"

// StationSeparator joins Region, District and StationCode into one
// station identifier, e.g. "R1_D1_S001".
const StationSeparator = "_"

// RegionSchema describes the expected column layout of one region's exports.
// The portal's schema drifts between regions, so each region gets its own
// descriptor instead of a single global schema.
type RegionSchema struct {
	RegionColumn   string   `yaml:"region_column"`
	DistrictColumn string   `yaml:"district_column"`
	StationColumn  string   `yaml:"station_column"`
	DateColumn     string   `yaml:"date_column"`
	ValueColumn    string   `yaml:"value_column"`
	Placeholders   []string `yaml:"placeholders"`
	MinRows        int      `yaml:"min_rows"`
}

// DefaultSchema matches the portal's current export layout. Single-row files
// are treated as noise, so the default minimum is two data rows.
func DefaultSchema() RegionSchema {
	return RegionSchema{
		RegionColumn:   "State",
		DistrictColumn: "District",
		StationColumn:  "Station_name",
		DateColumn:     "Date",
		ValueColumn:    "level",
		Placeholders:   []string{"No Data Available"},
		MinRows:        2,
	}
}

// Merge overlays non-zero fields of o on top of s, returning the result.
// Used to apply per-region overrides over the default schema.
func (s RegionSchema) Merge(o RegionSchema) RegionSchema {
	if o.RegionColumn != "" {
		s.RegionColumn = o.RegionColumn
	}
	if o.DistrictColumn != "" {
		s.DistrictColumn = o.DistrictColumn
	}
	if o.StationColumn != "" {
		s.StationColumn = o.StationColumn
	}
	if o.DateColumn != "" {
		s.DateColumn = o.DateColumn
	}
	if o.ValueColumn != "" {
		s.ValueColumn = o.ValueColumn
	}
	if len(o.Placeholders) > 0 {
		s.Placeholders = o.Placeholders
	}
	if o.MinRows > 0 {
		s.MinRows = o.MinRows
	}
	return s
}

// SchemaSet resolves the schema for a region, falling back to the default
// for regions without an explicit descriptor.
type SchemaSet struct {
	Default   RegionSchema
	PerRegion map[string]RegionSchema
}

// NewSchemaSet builds a SchemaSet with per-region overrides applied on top
// of the given default.
func NewSchemaSet(def RegionSchema, overrides map[string]RegionSchema) SchemaSet {
	resolved := make(map[string]RegionSchema, len(overrides))
	for region, o := range overrides {
		resolved[region] = def.Merge(o)
	}
	return SchemaSet{Default: def, PerRegion: resolved}
}

// For returns the schema for the given region.
func (s SchemaSet) For(region string) RegionSchema {
	if schema, ok := s.PerRegion[region]; ok {
		return schema
	}
	return s.Default
}

// resolveValueColumn finds the measurement column in a header. Exact match
// first; otherwise the portal's renames ("Water level", "level(m)") are
// caught by a case-insensitive substring match on the configured name.
func (s RegionSchema) resolveValueColumn(header []string) (string, bool) {
	for _, col := range header {
		if col == s.ValueColumn {
			return col, true
		}
	}
	want := strings.ToLower(s.ValueColumn)
	for _, col := range header {
		if strings.Contains(strings.ToLower(col), want) {
			return col, true
		}
	}
	return "", false
}
