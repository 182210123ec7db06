// Command satpredict печатает ближайшие пролёты спутника над станцией
// с доплеровскими поправками частоты.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/art-injener/satpredict-go/internal/catalog"
	"github.com/art-injener/satpredict-go/internal/config"
	"github.com/art-injener/satpredict-go/internal/footprint"
	"github.com/art-injener/satpredict-go/internal/metrics"
	"github.com/art-injener/satpredict-go/internal/passes"
	"github.com/art-injener/satpredict-go/internal/sgp4"
	"github.com/art-injener/satpredict-go/internal/tle"
)

var errUsage = errors.New("usage")

type options struct {
	configPath string
	station    string
	sat        string
	at         string
	hours      int
	freqHz     float64
	positions  int
	trackPath  string
	serve      bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "satpredict:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options

	fs := flag.NewFlagSet("satpredict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "satpredict.yaml", "path to YAML config")
	fs.StringVar(&o.station, "station", "", "ground station name (default: first configured)")
	fs.StringVar(&o.sat, "sat", "", "satellite NORAD ID or name")
	fs.StringVar(&o.at, "at", "", "search start, RFC 3339 (default: now)")
	fs.IntVar(&o.hours, "hours", 0, "hours to search (default: predictor.hours_ahead)")
	fs.Float64Var(&o.freqHz, "freq", 0, "nominal frequency in Hz for Doppler correction")
	fs.IntVar(&o.positions, "positions", 0, "print positions every minute for N minutes around start")
	fs.StringVar(&o.trackPath, "track", "", "write ground track JSON to file")
	fs.BoolVar(&o.serve, "serve", false, "keep serving /metrics until interrupted")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.sat == "" {
		return o, fmt.Errorf("%w: -sat is required", errUsage)
	}

	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Collectors
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)

		srv := startMetricsServer(cfg.Metrics.Listen, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	catOpts := append(cfg.Elements.CatalogOptions(), catalog.WithLogger(logger), catalog.WithMetrics(m))
	cat := catalog.New(catOpts...)

	loadErr := cat.LoadFiles(cfg.Elements.Files)
	if len(cfg.Elements.Groups) > 0 {
		fetcher := catalog.NewFetcher(catalog.WithBaseURL(cfg.Elements.CelestrakURL))
		loadErr = errors.Join(loadErr, cat.LoadGroups(ctx, fetcher, cfg.Elements.Groups))
	}
	if loadErr != nil {
		if cat.Count() == 0 {
			return loadErr
		}
		logger.Warn("some element sources failed to load", "error", loadErr)
	}

	el, err := findSatellite(cat, o.sat, logger)
	if err != nil {
		return err
	}

	sc, err := pickStation(cfg, o.station)
	if err != nil {
		return err
	}
	gs, err := sc.GroundStation()
	if err != nil {
		return err
	}

	start := time.Now().UTC()
	if o.at != "" {
		if start, err = time.Parse(time.RFC3339, o.at); err != nil {
			return fmt.Errorf("%w: -at: %w", errUsage, err)
		}
	}

	hours := o.hours
	if hours <= 0 {
		hours = cfg.Predictor.HoursAhead
	}

	if age := el.Age(start); el.IsStale(start, cfg.Elements.MaxAgeDays) {
		logger.Warn("element set is stale", "satellite", el.Name, "age", age.Round(time.Hour))
	}

	popts := append(cfg.Predictor.Options(), passes.WithLogger(logger), passes.WithMetrics(m))
	p, err := passes.New(el, gs, popts...)
	if err != nil {
		return fmt.Errorf("satellite %s over %s: %w", el.Name, gs.Name(), err)
	}

	printCurrent(stdout, p, start)

	list, err := p.Passes(start, hours, cfg.Predictor.WindBack)
	if err != nil {
		return err
	}
	printPasses(stdout, p, list, o.freqHz, hours)

	if o.positions > 0 {
		states, err := p.Positions(start, 60, o.positions, o.positions)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, "\nPositions:")
		for _, st := range states {
			fmt.Fprintf(stdout, "%s  %s\n", st.Time.Format(time.RFC3339), st.ShortString())
		}
	}

	if o.trackPath != "" {
		if err := writeTrack(o.trackPath, p, start); err != nil {
			return err
		}
		logger.Info("ground track written", "path", o.trackPath)
	}

	if o.serve && cfg.Metrics.Enabled {
		logger.Info("serving metrics, press Ctrl+C to stop", "listen", cfg.Metrics.Listen)
		<-ctx.Done()
	}

	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "listen", addr, "error", err)
		}
	}()

	return srv
}

// findSatellite ищет спутник по номеру NORAD или по имени.
func findSatellite(cat *catalog.Catalog, query string, logger *slog.Logger) (*tle.Elements, error) {
	if id, err := strconv.Atoi(query); err == nil {
		if el, ok := cat.Get(id); ok {
			return el, nil
		}

		return nil, fmt.Errorf("satellite %d not found in catalog of %d element sets", id, cat.Count())
	}

	found := cat.FindByName(query)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("satellite %q not found in catalog of %d element sets", query, cat.Count())
	case 1:
		return found[0], nil
	}

	names := make([]string, 0, len(found))
	for _, el := range found {
		names = append(names, fmt.Sprintf("%s (%d)", el.Name, el.NoradID))
	}
	logger.Warn("ambiguous satellite name, using first match",
		"query", query,
		"matches", strings.Join(names, ", "),
	)

	return found[0], nil
}

func pickStation(cfg *config.Config, name string) (config.StationConfig, error) {
	if name == "" {
		if len(cfg.Stations) == 0 {
			return config.StationConfig{}, fmt.Errorf("%w: no stations configured", config.ErrInvalidConfig)
		}

		return cfg.Stations[0], nil
	}

	sc, ok := cfg.Station(name)
	if !ok {
		return config.StationConfig{}, fmt.Errorf("%w: station %q not configured", config.ErrInvalidConfig, name)
	}

	return sc, nil
}

func printCurrent(w io.Writer, p *passes.Predictor, t time.Time) {
	el := p.Satellite().Elements()
	st := p.Position(t)

	fmt.Fprintf(w, "%s (%d) from %s\n", el.Name, el.NoradID, p.Station())
	fmt.Fprintf(w, "Period: %.2f min. Apogee: %.0f km. Perigee: %.0f km.\n",
		el.OrbitalPeriod(), el.Apogee(), el.Perigee())
	fmt.Fprintf(w, "GMST: %.4f deg.\n", sgp4.GMST(t)*180/math.Pi)
	fmt.Fprintf(w, "Footprint radius: %.0f km\n\n", footprint.Radius(st.Altitude))
	fmt.Fprint(w, st.String())
}

func printPasses(w io.Writer, p *passes.Predictor, list []passes.PassEvent, freqHz float64, hours int) {
	fmt.Fprintf(w, "\n%d passes in the next %d hours\n", len(list), hours)

	for i, pass := range list {
		fmt.Fprintf(w, "\nPass %d (pole: %s)\n%s\n", i+1, pass.PolePassed, pass)

		if freqHz <= 0 {
			continue
		}
		for _, at := range []struct {
			label string
			t     time.Time
		}{
			{"AOS", pass.Start},
			{"TCA", pass.TCA},
			{"LOS", pass.End},
		} {
			fmt.Fprintf(w, "%s downlink: %d Hz uplink: %d Hz\n",
				at.label, p.DownlinkFreq(freqHz, at.t), p.UplinkFreq(freqHz, at.t))
		}
	}
}

func writeTrack(path string, p *passes.Predictor, now time.Time) error {
	track, err := footprint.DefaultGroundTrack(p.Satellite(), now)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(track, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ground track: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ground track: %w", err)
	}

	return nil
}
