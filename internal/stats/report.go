package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"gpforge/internal/model"
)

var ErrNoData = errors.New("no diagnostics to report")

// RunReport bundles everything persisted for one run.
type RunReport struct {
	Run         model.RunSummary              `json:"run"`
	Diagnostics []model.GenerationDiagnostics `json:"diagnostics"`
	Migrations  []model.MigrationRecord       `json:"migrations,omitempty"`
	GeneratedAt string                        `json:"generated_at_utc"`
}

// IslandSeries is the per-generation trajectory of one subpopulation.
type IslandSeries struct {
	Island     int       `json:"island"`
	Generation []int     `json:"generation"`
	BestTrain  []float64 `json:"best_train"`
	BestTest   []float64 `json:"best_test"`
	MeanTrain  []float64 `json:"mean_train"`
}

// BuildIslandSeries groups diagnostics by island, ordered by island and generation.
func BuildIslandSeries(diagnostics []model.GenerationDiagnostics) []IslandSeries {
	ordered := append([]model.GenerationDiagnostics(nil), diagnostics...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Island != ordered[j].Island {
			return ordered[i].Island < ordered[j].Island
		}
		return ordered[i].Generation < ordered[j].Generation
	})

	var out []IslandSeries
	for _, d := range ordered {
		if len(out) == 0 || out[len(out)-1].Island != d.Island {
			out = append(out, IslandSeries{Island: d.Island})
		}
		s := &out[len(out)-1]
		s.Generation = append(s.Generation, d.Generation)
		s.BestTrain = append(s.BestTrain, d.BestTrain)
		s.BestTest = append(s.BestTest, d.BestTest)
		s.MeanTrain = append(s.MeanTrain, d.MeanTrain)
	}
	return out
}

// WriteTextReport renders a run summary followed by the last generation of
// every island and the migration log.
func WriteTextReport(w io.Writer, report RunReport) error {
	run := report.Run
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", run.ID)
	if run.Name != "" {
		fmt.Fprintf(tw, "name\t%s\n", run.Name)
	}
	fmt.Fprintf(tw, "mode\t%s\n", run.Mode)
	fmt.Fprintf(tw, "variation\t%s\n", run.Variation)
	fmt.Fprintf(tw, "selection\t%s\n", run.Selection)
	fmt.Fprintf(tw, "population\t%s x %d\n", humanize.Comma(int64(run.PopulationSize)), max(run.Subpopulations, 1))
	fmt.Fprintf(tw, "generations\t%s\n", humanize.Comma(int64(run.Generations)))
	if !run.StartedAt.IsZero() && !run.FinishedAt.IsZero() {
		fmt.Fprintf(tw, "elapsed\t%s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "best train\t%.6g\n", run.BestTrain)
	fmt.Fprintf(tw, "best test\t%.6g\n", run.BestTest)
	fmt.Fprintf(tw, "best size\t%s nodes (depth %d)\n", humanize.Comma(int64(run.BestSize)), run.BestDepth)
	if run.BestFormula != "" {
		fmt.Fprintf(tw, "formula\t%s\n", run.BestFormula)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if series := BuildIslandSeries(report.Diagnostics); len(series) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "island\tgenerations\tbest train\tbest test\tmean train")
		for _, s := range series {
			last := len(s.Generation) - 1
			fmt.Fprintf(tw, "%d\t%d\t%.6g\t%.6g\t%.6g\n", s.Island, s.Generation[last], s.BestTrain[last], s.BestTest[last], s.MeanTrain[last])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Migrations) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "turn\tfrom\tto\tmigrants\tbest train")
		for _, m := range report.Migrations {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.6g\n", m.Turn, m.From, m.To, m.Count, m.BestTrain)
		}
		return tw.Flush()
	}
	return nil
}

// WriteJSONReport writes report to dir/<run id>_report.json and returns the path.
func WriteJSONReport(dir string, report RunReport) (string, error) {
	if report.Run.ID == "" {
		return "", fmt.Errorf("report run id is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	path := filepath.Join(dir, report.Run.ID+"_report.json")
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

func ReadJSONReport(path string) (RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunReport{}, err
	}
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return RunReport{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return report, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
