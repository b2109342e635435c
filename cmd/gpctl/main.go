package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gpforge/internal/dataset"
	"gpforge/internal/metrics"
	"gpforge/internal/platform"
	"gpforge/internal/stats"
	"gpforge/internal/storage"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runSingle(ctx, args[1:])
	case "islands":
		return runIslands(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "migrations":
		return runMigrations(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: gpctl <init|reset|run|islands|runs|diagnostics|migrations|plot> [flags]", msg)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(stdout, "initialized store=%s\n", common.StoreKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()
	if err := polis.Reset(ctx); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "reset store=%s\n", common.StoreKind)
	return nil
}

func runSingle(ctx context.Context, args []string) error {
	common := newCommonFlags()
	opts, err := parseRunOptions("run", args, false, common)
	if err != nil {
		return err
	}
	gpCfg, err := opts.gpConfig()
	if err != nil {
		return err
	}
	ds, err := dataset.Load(opts.Train, opts.Test)
	if err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, runPolisConfig(opts))
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := polis.RunSingle(ctx, platform.SingleRunConfig{
		RunID:       opts.RunID,
		Dataset:     ds,
		GP:          gpCfg,
		Generations: opts.Generations,
	})
	if err != nil {
		return err
	}
	return emitResult(opts, result)
}

func runIslands(ctx context.Context, args []string) error {
	common := newCommonFlags()
	opts, err := parseRunOptions("islands", args, true, common)
	if err != nil {
		return err
	}
	gpCfg, err := opts.gpConfig()
	if err != nil {
		return err
	}
	ds, err := dataset.Load(opts.Train, opts.Test)
	if err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, runPolisConfig(opts))
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := polis.RunIslands(ctx, platform.IslandRunConfig{
		RunID:              opts.RunID,
		Dataset:            ds,
		GP:                 gpCfg,
		Islands:            opts.Islands.Count,
		Turns:              opts.Islands.Turns,
		GenerationsPerTurn: opts.Islands.GenerationsPerTurn,
		Migrants:           opts.Islands.Migrants,
		Workers:            opts.Islands.Workers,
	})
	if err != nil {
		return err
	}
	return emitResult(opts, result)
}

func runPolisConfig(opts runOptions) platform.Config {
	collector := metrics.NewCollector()
	cfg := platform.Config{Metrics: collector}
	if opts.MetricsAddr != "" {
		cfg.SupportModules = append(cfg.SupportModules, &platform.HTTPModule{
			ModuleName: "metrics",
			Addr:       opts.MetricsAddr,
			Handler:    collector.Handler(),
		})
	}
	return cfg
}

func emitResult(opts runOptions, result platform.RunResult) error {
	report := stats.RunReport{
		Run:         result.Summary,
		Diagnostics: result.Diagnostics,
		Migrations:  result.Migrations,
	}
	if opts.ReportDir != "" {
		path, err := stats.WriteJSONReport(opts.ReportDir, report)
		if err != nil {
			return err
		}
		slog.Info("report written", slog.String("path", path))
	}
	if opts.PlotPath != "" {
		title := result.Summary.Name
		if title == "" {
			title = result.Summary.ID
		}
		if err := stats.PlotFitness(result.Diagnostics, title, opts.PlotPath); err != nil {
			return err
		}
		slog.Info("plot written", slog.String("path", opts.PlotPath))
	}
	if opts.JSON {
		return writeJSON(result.Summary)
	}
	return stats.WriteTextReport(stdout, report)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	polis, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()

	runs, err := polis.Store().ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) > *limit {
		runs = runs[:*limit]
	}
	if *jsonOut {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "run_id=%s started=%s mode=%s variation=%s population=%d generations=%d best_train=%.6g best_test=%.6g\n",
			r.ID, r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"), r.Mode, r.Variation, r.PopulationSize, r.Generations, r.BestTrain, r.BestTest)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := resolveRunID(ctx, polis.Store(), *runID, *latest)
	if err != nil {
		return err
	}
	diagnostics, ok, err := polis.Store().GetGenerationDiagnostics(ctx, id)
	if err != nil {
		return err
	}
	if !ok || len(diagnostics) == 0 {
		fmt.Fprintln(stdout, "no diagnostics")
		return nil
	}
	if *limit > 0 && len(diagnostics) > *limit {
		diagnostics = diagnostics[len(diagnostics)-*limit:]
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}
	for _, d := range diagnostics {
		fmt.Fprintf(stdout, "island=%d generation=%d best_train=%.6g best_test=%.6g size=%d depth=%d mean_train=%.6g std_train=%.6g\n",
			d.Island, d.Generation, d.BestTrain, d.BestTest, d.BestSize, d.BestDepth, d.MeanTrain, d.StdDevTrain)
	}
	return nil
}

func runMigrations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrations", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show migrations for the most recent run")
	jsonOut := fs.Bool("json", false, "emit migrations as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := resolveRunID(ctx, polis.Store(), *runID, *latest)
	if err != nil {
		return err
	}
	migrations, ok, err := polis.Store().GetMigrations(ctx, id)
	if err != nil {
		return err
	}
	if !ok || len(migrations) == 0 {
		fmt.Fprintln(stdout, "no migrations")
		return nil
	}
	if *jsonOut {
		return writeJSON(migrations)
	}
	for _, m := range migrations {
		fmt.Fprintf(stdout, "turn=%d from=%s to=%s count=%d best_train=%.6g\n", m.Turn, m.From, m.To, m.Count, m.BestTrain)
	}
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	common := newCommonFlags()
	common.bind(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "plot the most recent run")
	out := fs.String("out", "fitness.png", "output image path (.png, .svg, .pdf)")
	title := fs.String("title", "", "plot title (default: run name or id)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	polis, closeFn, err := openPolis(ctx, common, platform.Config{})
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := resolveRunID(ctx, polis.Store(), *runID, *latest)
	if err != nil {
		return err
	}
	run, ok, err := polis.Store().GetRun(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", id)
	}
	diagnostics, _, err := polis.Store().GetGenerationDiagnostics(ctx, id)
	if err != nil {
		return err
	}
	if *title == "" {
		*title = run.Name
		if *title == "" {
			*title = run.ID
		}
	}
	if err := stats.PlotFitness(diagnostics, *title, *out); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "plot written to %s\n", *out)
	return nil
}

// openPolis configures logging, opens the store and starts a polis over it.
// The returned func stops the polis and closes the store.
func openPolis(ctx context.Context, common *commonFlags, cfg platform.Config) (*platform.Polis, func(), error) {
	logger, err := newLogger(stderr, common.LogLevel, common.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	store, err := storage.NewStore(common.StoreKind, common.DBPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.Store = store
	cfg.Logger = logger.With(slog.String("component", "polis"))
	polis := platform.NewPolis(cfg)
	if err := polis.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, nil, err
	}
	return polis, func() {
		polis.Stop()
		_ = storage.CloseIfSupported(store)
	}, nil
}

func resolveRunID(ctx context.Context, store storage.Store, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either --run-id or --latest, not both")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("requires --run-id or --latest")
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs found")
	}
	return runs[0].ID, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
