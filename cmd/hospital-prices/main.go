package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
	"github.com/gyeh/hospital-prices/internal/directory"
	"github.com/gyeh/hospital-prices/internal/logging"
	"github.com/gyeh/hospital-prices/internal/output"
	"github.com/gyeh/hospital-prices/internal/pattern"
	"github.com/gyeh/hospital-prices/internal/price"
	"github.com/gyeh/hospital-prices/internal/progress"
	"github.com/gyeh/hospital-prices/internal/search"
	"github.com/gyeh/hospital-prices/internal/worker"
)

// tablePaths locates the reference tables consumed by the engine.
type tablePaths struct {
	hospitals       string
	zipCentroids    string
	servicePatterns string
	revenuePatterns string
	medicareRates   string
}

var (
	logFormat string
	tables    tablePaths
	cmRoot    string
	s3Region  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-prices",
		Short: "Search hospital chargemasters near a ZIP code for procedure prices",
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&tables.hospitals, "hospitals", "data/hospitals.csv", "Hospital directory CSV")
	pf.StringVar(&tables.zipCentroids, "zips", "data/zip_centroids.csv", "ZIP centroid CSV")
	pf.StringVar(&tables.servicePatterns, "service-patterns", "data/service_patterns.json", "Service pattern table JSON")
	pf.StringVar(&tables.revenuePatterns, "revenue-patterns", "data/revenue_patterns.json", "Revenue-code pattern table JSON")
	pf.StringVar(&tables.medicareRates, "medicare-rates", "data/medicare_rates.csv", "Medicare reference rate CSV")
	pf.StringVar(&cmRoot, "chargemaster-root", "", "Base directory for relative chargemaster paths")
	pf.StringVar(&s3Region, "s3-region", "", "Enable s3:// chargemaster paths in this AWS region")

	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newPayersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSearchCmd() *cobra.Command {
	var (
		zip         string
		radius      float64
		serviceName string
		revenueName string
		rawPattern  string
		payer       string
		workers     int
		outputFile  string
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find matching chargemaster entries at hospitals within a radius",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Setup(logFormat)

			engine, err := loadEngine(cmd.Context(), log, workers)
			if err != nil {
				return err
			}

			req := search.Request{
				ZIP:         zip,
				RadiusMiles: radius,
				Payer:       payer,
			}
			req.Pattern, req.CodeField, err = resolvePattern(engine, serviceName, revenueName, rawPattern)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			// Pre-flight runs before any progress UI or fetch; the
			// in-radius count sizes the bar. An empty pattern never
			// drives the pool, so it gets no progress display.
			_, inRadius, err := engine.InRadius(req.ZIP, req.RadiusMiles)
			if err != nil {
				return err
			}

			var mgr progress.Manager
			if req.Pattern.Source != "" {
				if noProgress {
					mgr = progress.NewLogManager(len(inRadius))
				} else {
					mgr = progress.NewMPBManager(len(inRadius))
				}
				engine.Pool.Progress = mgr
			}

			startTime := time.Now()
			result, err := engine.Search(ctx, req)
			if mgr != nil {
				mgr.Wait()
			}
			if err != nil {
				return err
			}

			matched := 0
			for _, hits := range result.Hits {
				if len(hits) > 0 {
					matched++
				}
			}

			doc := output.Document{
				SearchParams: output.SearchParams{
					ZIP:               zip,
					RadiusMiles:       radius,
					Pattern:           req.Pattern.Source,
					Payer:             payer,
					HospitalsSearched: len(result.Hospitals),
					HospitalsMatched:  matched,
					DurationSeconds:   time.Since(startTime).Seconds(),
				},
				Results: output.BuildResults(result, engine.MedicareRates),
			}
			if err := output.WriteResults(outputFile, doc); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			fmt.Fprintf(os.Stderr, "\nSearch complete: %d hospitals in radius, %d with hits (%.1fs)\n",
				len(result.Hospitals), matched, doc.SearchParams.DurationSeconds)
			return nil
		},
	}

	cmd.Flags().StringVar(&zip, "zip", "", "Search center ZIP code")
	cmd.Flags().Float64Var(&radius, "radius", 25, "Search radius in miles (>= 500 shows all hospitals)")
	cmd.Flags().StringVar(&serviceName, "service", "", "Configured service pattern name")
	cmd.Flags().StringVar(&revenueName, "revenue-code", "", "Configured revenue-code pattern name")
	cmd.Flags().StringVar(&rawPattern, "pattern", "", "Raw search expression (case-insensitive regex)")
	cmd.Flags().StringVar(&payer, "payer", "", "Exact payer name filter")
	cmd.Flags().IntVar(&workers, "workers", worker.DefaultWorkers, "Number of concurrent chargemaster fetches")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output file path (use '-' for stdout)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	cmd.MarkFlagRequired("zip")
	cmd.MarkFlagsMutuallyExclusive("service", "revenue-code", "pattern")

	return cmd
}

func newPayersCmd() *cobra.Command {
	var (
		zip     string
		radius  float64
		workers int
	)

	cmd := &cobra.Command{
		Use:   "payers",
		Short: "List the distinct payer names observed at hospitals within a radius",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Setup(logFormat)

			engine, err := loadEngine(cmd.Context(), log, workers)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			hospitals := engine.Hospitals
			if zip != "" {
				_, hospitals, err = engine.InRadius(zip, radius)
				if err != nil {
					return err
				}
			}

			for _, name := range engine.ListPayers(ctx, hospitals) {
				fmt.Println(name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&zip, "zip", "", "Limit to hospitals near this ZIP code")
	cmd.Flags().Float64Var(&radius, "radius", 25, "Radius in miles when --zip is set")
	cmd.Flags().IntVar(&workers, "workers", worker.DefaultWorkers, "Number of concurrent chargemaster fetches")

	return cmd
}

// loadEngine reads the reference tables and assembles a session engine.
// The Medicare and pattern tables are optional; a missing file degrades
// to an empty table with a warning.
func loadEngine(ctx context.Context, log zerolog.Logger, workers int) (*search.Engine, error) {
	zips, err := directory.LoadZipCentroids(tables.zipCentroids)
	if err != nil {
		return nil, err
	}
	hospitals, err := directory.LoadHospitals(tables.hospitals)
	if err != nil {
		return nil, err
	}

	engine := &search.Engine{
		Zips:            zips,
		Hospitals:       hospitals,
		ServicePatterns: loadOptionalTable(log, tables.servicePatterns),
		RevenuePatterns: loadOptionalTable(log, tables.revenuePatterns),
		MedicareRates:   loadOptionalRates(log, tables.medicareRates),
	}

	router := &chargemaster.Router{
		HTTP: &chargemaster.HTTPFetcher{},
		File: &chargemaster.FileFetcher{Root: cmRoot},
	}
	if s3Region != "" {
		router.S3, err = chargemaster.NewS3Fetcher(ctx, s3Region)
		if err != nil {
			return nil, err
		}
	}

	engine.Pool = &worker.Pool{
		Workers: workers,
		Store:   chargemaster.NewStore(router, log),
		Log:     log,
	}
	return engine, nil
}

func loadOptionalTable(log zerolog.Logger, path string) pattern.Table {
	table, err := pattern.LoadTable(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("pattern table unavailable")
		return pattern.Table{}
	}
	return table
}

func loadOptionalRates(log zerolog.Logger, path string) price.MedicareTable {
	rates, err := price.LoadMedicareRates(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("medicare rate table unavailable")
		return price.MedicareTable{}
	}
	return rates
}

// resolvePattern picks the search expression: a configured service or
// revenue-code entry, or a raw user expression. A missing name is a
// pre-flight error, not a zero-hit search.
func resolvePattern(engine *search.Engine, serviceName, revenueName, rawPattern string) (pattern.Pattern, pattern.CodeField, error) {
	switch {
	case serviceName != "":
		p, ok := engine.LookupPattern(pattern.CodeFieldProcedure, serviceName)
		if !ok {
			return pattern.Pattern{}, 0, fmt.Errorf("unknown service pattern %q", serviceName)
		}
		return p, pattern.CodeFieldProcedure, nil
	case revenueName != "":
		p, ok := engine.LookupPattern(pattern.CodeFieldRevenue, revenueName)
		if !ok {
			return pattern.Pattern{}, 0, fmt.Errorf("unknown revenue-code pattern %q", revenueName)
		}
		return p, pattern.CodeFieldRevenue, nil
	default:
		return pattern.Custom(rawPattern), pattern.CodeFieldProcedure, nil
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		// A second signal gets default handling and kills the process.
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, cancel
}
