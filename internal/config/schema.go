package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// schemaFile mirrors the YAML layout of a region schema descriptor:
//
//	default:
//	  value_column: level
//	  min_rows: 2
//	regions:
//	  Kerala:
//	    station_column: Well_Code
//	    placeholders: ["No Data Available", "NA"]
type schemaFile struct {
	Default domain.RegionSchema            `yaml:"default"`
	Regions map[string]domain.RegionSchema `yaml:"regions"`
}

// Schemas builds the per-region schema set. When cfg.SchemaFile is empty the
// built-in default schema (with cfg.MinRows applied) covers every region.
func (cfg *Config) Schemas() (domain.SchemaSet, error) {
	def := domain.DefaultSchema()
	if cfg.MinRows > 0 {
		def.MinRows = cfg.MinRows
	}

	if cfg.SchemaFile == "" {
		return domain.NewSchemaSet(def, nil), nil
	}

	data, err := os.ReadFile(cfg.SchemaFile)
	if err != nil {
		return domain.SchemaSet{}, fmt.Errorf("read schema file: %w", err)
	}

	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.SchemaSet{}, fmt.Errorf("parse schema file %s: %w", cfg.SchemaFile, err)
	}

	def = def.Merge(f.Default)
	return domain.NewSchemaSet(def, f.Regions), nil
}
