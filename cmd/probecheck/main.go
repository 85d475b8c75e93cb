// Command probecheck exercises the Open-Meteo Marine API with the same
// configuration the service loads: one connectivity probe, then a full
// current-conditions fetch per configured location, with the hourly
// forecast behind a flag. It prints a per-location report and exits
// nonzero only when no location could be fetched.
//
// Usage:
//
//	go run ./cmd/probecheck
//	LOCATIONS="Mooloolaba,-26.6817,153.1193" go run ./cmd/probecheck -forecast
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/marine-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/marine-weather-service/internal/config"
	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

func main() {
	forecast := flag.Bool("forecast", false, "also fetch the hourly forecast per location")
	timeout := flag.Duration("timeout", 0, "override FETCH_TIMEOUT for this run")
	flag.Parse()

	if code := run(*forecast, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(forecast bool, timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	if timeout > 0 {
		cfg.FetchTimeout = timeout
	}
	for _, entry := range cfg.SkippedLocations {
		fmt.Fprintf(os.Stderr, "WARN: skipping malformed location entry %q\n", entry)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := openmeteo.NewClient(cfg.MarineAPIURL, cfg.Timezone, cfg.WeatherModel, cfg.FetchTimeout, logger)
	ctx := context.Background()

	fmt.Println("=== Marine API Probe Check ===")
	fmt.Printf("API: %s (model %s, timeout %s)\n", cfg.MarineAPIURL, cfg.WeatherModel, cfg.FetchTimeout)
	fmt.Println()

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	probeErr := client.Probe(probeCtx, cfg.Locations[0])
	cancel()
	fmt.Printf("  %-42s %s\n", "Connectivity probe ("+cfg.Locations[0].Name+")", verdict(probeErr))

	ok := 0
	for _, loc := range cfg.Locations {
		obs, err := fetchCurrent(ctx, client, loc, cfg.FetchTimeout)
		fmt.Printf("  %-42s %s\n", loc.Name, verdict(err))
		if err != nil {
			continue
		}
		ok++
		printObservation(obs)

		if !forecast {
			continue
		}
		series, err := fetchForecast(ctx, client, loc, cfg.ForecastDays, cfg.FetchTimeout)
		if err != nil {
			fmt.Printf("      %-12s %s\n", "forecast", verdict(err))
			continue
		}
		printForecast(series, cfg.ForecastDays)
	}

	fmt.Println()
	fmt.Printf("Fetched %d of %d locations.\n", ok, len(cfg.Locations))
	if ok == 0 {
		fmt.Println("Probe check FAILED.")
		return 1
	}
	return 0
}

func fetchCurrent(ctx context.Context, client *openmeteo.Client, loc domain.Location, timeout time.Duration) (domain.Observation, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.FetchCurrent(fetchCtx, loc)
}

func fetchForecast(ctx context.Context, client *openmeteo.Client, loc domain.Location, days int, timeout time.Duration) (domain.ForecastSeries, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.FetchForecast(fetchCtx, loc, days)
}

func printObservation(obs domain.Observation) {
	fmt.Printf("      %-12s %s @ %s, period %s\n", "swell", meters(obs.SwellWaveHeight), direction(obs.SwellWaveDirection), seconds(obs.SwellWavePeriod))
	fmt.Printf("      %-12s %s @ %s, period %s\n", "waves", meters(obs.WaveHeight), direction(obs.WaveDirection), seconds(obs.WavePeriod))
	fmt.Printf("      %-12s %s @ %s, period %s\n", "wind waves", meters(obs.WindWaveHeight), direction(obs.WindWaveDirection), seconds(obs.WindWavePeriod))
	fmt.Printf("      %-12s %s, retrieved %s\n", "timezone", obs.Timezone, obs.RetrievedAt.Format(time.RFC3339))
}

func printForecast(series domain.ForecastSeries, maxDays int) {
	days := series.Days()
	if len(days) > maxDays {
		days = days[:maxDays]
	}
	for _, day := range days {
		fmt.Printf("      %-12s swell %s @ %s\n", day.Date, meters(day.Values["swell_wave_height"]), direction(day.Values["swell_wave_direction"]))
	}
}

func verdict(err error) string {
	if err == nil {
		return "\033[32mPASS\033[0m"
	}
	return fmt.Sprintf("\033[31mFAIL\033[0m (%s)", domain.FailureReason(err))
}

func meters(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2fm", *v)
}

func seconds(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1fs", *v)
}

func direction(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f° (%s)", *v, domain.Compass(v))
}
