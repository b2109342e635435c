package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"gpforge/internal/model"
)

// PlotFitness draws best training error per generation for every island,
// plus the population mean of the first island dashed, and saves it to
// outPath. The image format follows the file extension.
func PlotFitness(diagnostics []model.GenerationDiagnostics, title, outPath string) error {
	series := BuildIslandSeries(diagnostics)
	if len(series) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "RMSE (train)"

	for i, s := range series {
		best, err := plotter.NewLine(points(s.Generation, s.BestTrain))
		if err != nil {
			return fmt.Errorf("island %d best line: %w", s.Island, err)
		}
		best.Color = plotutil.Color(i)
		p.Add(best)
		p.Legend.Add(fmt.Sprintf("island %d best", s.Island), best)

		if i == 0 {
			mean, err := plotter.NewLine(points(s.Generation, s.MeanTrain))
			if err != nil {
				return fmt.Errorf("island %d mean line: %w", s.Island, err)
			}
			mean.Color = plotutil.Color(i)
			mean.Dashes = plotutil.Dashes(1)
			p.Add(mean)
			p.Legend.Add(fmt.Sprintf("island %d mean", s.Island), mean)
		}
	}
	p.Legend.Top = true

	return p.Save(6*vg.Inch, 4*vg.Inch, outPath)
}

// points drops non-finite values, which plotter rejects.
func points(xs []int, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(xs[i]), Y: ys[i]})
	}
	return pts
}
