// Command genmock generates a synthetic portal snapshot for local pipeline
// runs and load testing. It lays out region directories in the portal's
// export convention and seeds them with realistic well CSVs, including the
// malformed varieties the validator has to reject (empty files, placeholder
// dumps, missing columns, single-row stubs).
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/raw \
//	  -regions 6 \
//	  -stations 40 \
//	  -years 5 \
//	  -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var regionNames = []string{
	"Kerala", "Gujarat", "Punjab", "Rajasthan", "Assam", "Bihar",
	"Odisha", "Haryana", "Tripura", "Goa", "Sikkim", "Manipur",
	"Nagaland", "Mizoram", "Meghalaya", "Jharkhand", "Chhattisgarh",
	"Uttarakhand", "Telangana", "Karnataka", "Maharashtra", "Tamilnadu",
	"Westbengal",
}

var districtNames = []string{
	"North", "South", "East", "West", "Central", "Coastal", "Upland",
}

func main() {
	out := flag.String("out", "data/raw", "output directory for the snapshot")
	regions := flag.Int("regions", 6, "number of region directories to generate")
	stations := flag.Int("stations", 40, "wells per region")
	years := flag.Int("years", 5, "years of monthly readings per well")
	seed := flag.Int64("seed", 42, "random seed for reproducible snapshots")
	flag.Parse()

	if *regions < 1 || *regions > len(regionNames) {
		log.Fatalf("regions must be between 1 and %d", len(regionNames))
	}

	if err := run(*out, *regions, *stations, *years, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(out string, regions, stations, years int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	totalFiles, totalBroken := 0, 0
	for _, region := range regionNames[:regions] {
		dir := filepath.Join(out, region+"_groundWaterLevel")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		files, broken, err := writeRegion(dir, region, stations, years, rng)
		if err != nil {
			return fmt.Errorf("region %s: %w", region, err)
		}
		totalFiles += files
		totalBroken += broken
		log.Printf("%s: %d files (%d malformed)", region, files, broken)
	}

	log.Printf("snapshot ready: %d files across %d regions, %d malformed", totalFiles, regions, totalBroken)
	return nil
}

// writeRegion emits one CSV per well. Roughly one file in eight is broken in
// one of the ways real portal exports break.
func writeRegion(dir, region string, stations, years int, rng *rand.Rand) (files, broken int, err error) {
	for i := 0; i < stations; i++ {
		district := districtNames[rng.Intn(len(districtNames))]
		code := fmt.Sprintf("W%04d", rng.Intn(10000))
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", district, code))

		var content string
		if rng.Intn(8) == 0 {
			content = brokenCSV(region, district, code, rng)
			broken++
		} else {
			content = wellCSV(region, district, code, years, rng)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return files, broken, err
		}
		files++
	}
	return files, broken, nil
}

// wellCSV builds a usable monthly time series. The water level wanders around
// a per-well base depth, with occasional missing months left as the portal's
// placeholder text.
func wellCSV(region, district, code string, years int, rng *rand.Rand) string {
	var b strings.Builder
	b.WriteString("State,District,Station_name,Date,level\n")

	base := 2 + rng.Float64()*25
	start := time.Date(2024-years, time.January, 1, 0, 0, 0, 0, time.UTC)
	for m := 0; m < years*12; m++ {
		date := start.AddDate(0, m, 0)
		level := fmt.Sprintf("%.2f", base+rng.NormFloat64()*1.5)
		if rng.Intn(20) == 0 {
			level = "No Data Available"
		}
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s\n",
			region, district, code, date.Format("2006-01-02"), level)
	}
	return b.String()
}

// brokenCSV produces one of the malformed shapes seen in real exports.
func brokenCSV(region, district, code string, rng *rand.Rand) string {
	switch rng.Intn(4) {
	case 0: // empty file
		return ""
	case 1: // placeholder dump, no real readings
		var b strings.Builder
		b.WriteString("State,District,Station_name,Date,level\n")
		for m := 0; m < 6; m++ {
			fmt.Fprintf(&b, "%s,%s,%s,2023-%02d-01,No Data Available\n", region, district, code, m+1)
		}
		return b.String()
	case 2: // export truncated mid-schema, value column missing
		return fmt.Sprintf("State,District,Station_name,Date\n%s,%s,%s,2023-01-01\n", region, district, code)
	default: // single-row stub
		return fmt.Sprintf("State,District,Station_name,Date,level\n%s,%s,%s,2023-01-01,4.52\n", region, district, code)
	}
}
