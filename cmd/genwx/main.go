// Command genwx generates synthetic station observation files for fixtures
// and local runs. Output matches the ingestion wire format: one line per
// day, YYYYMMDD date plus max temp, min temp, and precipitation in raw
// tenths, with occasional -9999 missing sentinels.
//
// Usage:
//
//	go run ./cmd/genwx -out-dir wx_data -stations 5 -start 20140101 -days 365
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/station-climate-etl/internal/domain"
)

const missingRate = 0.05

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write station files into")
	stations := flag.Int("stations", 3, "number of stations to generate")
	start := flag.String("start", "20140101", "first observation date (YYYYMMDD)")
	days := flag.Int("days", 365, "number of daily observations per station")
	seed := flag.Int64("seed", 1, "random seed for reproducible output")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	startDate, err := time.ParseInLocation(domain.DateLayout, *start, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *outDir, err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *stations; i++ {
		stationID := fmt.Sprintf("USC%08d", 110000+i)
		path := filepath.Join(*outDir, stationID+".txt")
		if err := writeStationFile(path, startDate, *days, rng); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %d records", stationID, *days)
	}
	return nil
}

func writeStationFile(path string, start time.Time, days int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // flushed below

	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		maxTemp, minTemp, precip := dailyValues(date, rng)
		if _, err := fmt.Fprintf(f, "%s\t%d\t%d\t%d\n",
			date.Format(domain.DateLayout), maxTemp, minTemp, precip); err != nil {
			return err
		}
	}
	return f.Sync()
}

// dailyValues produces seasonally plausible raw readings: a sinusoidal
// annual temperature cycle around 10°C with noise, and sporadic rain.
func dailyValues(date time.Time, rng *rand.Rand) (maxTemp, minTemp, precip int) {
	phase := 2 * math.Pi * float64(date.YearDay()) / 365.0
	base := 100 + 150*math.Sin(phase-math.Pi/2) // raw tenths °C

	maxTemp = int(base) + rng.Intn(80)
	minTemp = maxTemp - 50 - rng.Intn(100)
	if rng.Float64() < 0.3 {
		precip = rng.Intn(300)
	}

	if rng.Float64() < missingRate {
		maxTemp = domain.MissingSentinel
	}
	if rng.Float64() < missingRate {
		minTemp = domain.MissingSentinel
	}
	if rng.Float64() < missingRate {
		precip = domain.MissingSentinel
	}
	return maxTemp, minTemp, precip
}
