// Command inspect runs the file validator over a portal snapshot without
// consolidating anything. It prints a per-region breakdown of verdicts so an
// operator can judge snapshot quality before a full run.
//
// Usage:
//
//	go run ./cmd/inspect \
//	  -input data/raw \
//	  -region-pattern groundWater \
//	  -schemas config/schemas.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/fssource"
	"github.com/couchcryptid/groundwater-etl/internal/config"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

func main() {
	input := flag.String("input", "", "portal snapshot root containing region directories")
	pattern := flag.String("region-pattern", "groundWater", "substring identifying region directories")
	schemaFile := flag.String("schemas", "", "optional YAML file with per-region schema overrides")
	minRows := flag.Int("min-rows", 2, "minimum data rows for a file to be usable")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*input, *pattern, *schemaFile, *minRows); code != 0 {
		os.Exit(code)
	}
}

// regionReport accumulates verdict counts for one region.
type regionReport struct {
	region   string
	files    int
	outcomes map[domain.Outcome]int
	rejected []domain.ValidationVerdict
}

func run(input, pattern, schemaFile string, minRows int) int {
	cfg := &config.Config{SchemaFile: schemaFile, MinRows: minRows}
	schemas, err := cfg.Schemas()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load schemas: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	source := fssource.New(input, pattern, logger)

	ctx := context.Background()
	regions, err := source.Regions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scan regions: %v\n", err)
		return 1
	}
	if len(regions) == 0 {
		fmt.Fprintf(os.Stderr, "no region directories matching %q under %s\n", pattern, input)
		return 1
	}

	fmt.Println("=== Groundwater Snapshot Inspection ===")
	fmt.Println()

	var reports []regionReport
	totalFiles, totalAccepted := 0, 0

	for _, region := range regions {
		files, err := source.Files(ctx, region)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read region %s: %v\n", region, err)
			return 1
		}

		rep := regionReport{region: region, outcomes: map[domain.Outcome]int{}}
		schema := schemas.For(region)
		for _, file := range files {
			verdict := domain.Validate(file, schema)
			rep.files++
			rep.outcomes[verdict.Outcome]++
			if verdict.Outcome.Rejected() {
				rep.rejected = append(rep.rejected, verdict)
			}
		}
		totalFiles += rep.files
		totalAccepted += rep.outcomes[domain.Accepted]
		reports = append(reports, rep)
	}

	printReports(reports)

	fmt.Println()
	fmt.Printf("Files: %d total, %d usable, %d rejected\n",
		totalFiles, totalAccepted, totalFiles-totalAccepted)

	if totalAccepted == 0 {
		fmt.Println("\nNo usable files found.")
		return 1
	}
	return 0
}

func printReports(reports []regionReport) {
	for _, rep := range reports {
		accepted := rep.outcomes[domain.Accepted]
		status := "\033[32mOK\033[0m"
		if accepted == 0 {
			status = "\033[31mEMPTY\033[0m"
		} else if accepted < rep.files {
			status = fmt.Sprintf("\033[33m%d rejected\033[0m", rep.files-accepted)
		}
		fmt.Printf("  %-28s %3d/%3d usable  %s\n", rep.region, accepted, rep.files, status)
	}

	// Detailed rejections after the overview, worst regions first.
	sort.Slice(reports, func(i, j int) bool {
		return len(reports[i].rejected) > len(reports[j].rejected)
	})
	for _, rep := range reports {
		if len(rep.rejected) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", rep.region)
		for i, v := range rep.rejected {
			fmt.Printf("  [%d] %s: %s (%s)\n", i+1, v.FileID, v.Reason, v.Outcome)
		}
	}
}
