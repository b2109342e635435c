package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gpforge/internal/evo"
	"gpforge/internal/variation"
)

// runOptions is the flat run description shared by config files and flags.
// Flags default to the file values, so explicit flags win.
type runOptions struct {
	ConfigPath string `toml:"-" yaml:"-"`

	Name        string `toml:"name" yaml:"name"`
	RunID       string `toml:"run_id" yaml:"run_id"`
	Train       string `toml:"train" yaml:"train"`
	Test        string `toml:"test" yaml:"test"`
	Generations int    `toml:"generations" yaml:"generations"`

	PopulationSize       int     `toml:"population_size" yaml:"population_size"`
	CrossoverProbability float64 `toml:"crossover_probability" yaml:"crossover_probability"`
	PoolSize             int     `toml:"pool_size" yaml:"pool_size"`
	Selection            string  `toml:"selection" yaml:"selection"`
	Variation            string  `toml:"variation" yaml:"variation"`
	MutationStep         float64 `toml:"mutation_step" yaml:"mutation_step"`
	Bounded              bool    `toml:"bounded" yaml:"bounded"`
	MaxInitDepth         int     `toml:"max_init_depth" yaml:"max_init_depth"`
	DepthLimit           int     `toml:"depth_limit" yaml:"depth_limit"`
	Seed                 int64   `toml:"seed" yaml:"seed"`

	Islands islandOptions `toml:"islands" yaml:"islands"`

	ReportDir   string `toml:"report_dir" yaml:"report_dir"`
	PlotPath    string `toml:"plot" yaml:"plot"`
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
	JSON        bool   `toml:"-" yaml:"-"`
}

type islandOptions struct {
	Count              int `toml:"count" yaml:"count"`
	Turns              int `toml:"turns" yaml:"turns"`
	GenerationsPerTurn int `toml:"generations_per_turn" yaml:"generations_per_turn"`
	Migrants           int `toml:"migrants" yaml:"migrants"`
	Workers            int `toml:"workers" yaml:"workers"`
}

func defaultRunOptions() runOptions {
	gp := evo.DefaultConfig()
	return runOptions{
		Generations:          50,
		PopulationSize:       gp.PopulationSize,
		CrossoverProbability: gp.CrossoverProbability,
		PoolSize:             gp.PoolSize,
		Selection:            string(gp.Selection),
		Variation:            string(variation.MethodStandard),
		MutationStep:         0.1,
		Bounded:              true,
		MaxInitDepth:         gp.MaxInitDepth,
		Islands: islandOptions{
			Count:              4,
			Turns:              5,
			GenerationsPerTurn: 10,
			Migrants:           evo.DefaultMigrants,
		},
	}
}

// loadRunConfig decodes a TOML or YAML file over opts; keys absent from the
// file keep their current values. Relative dataset paths in the file are
// resolved against the file's directory.
func loadRunConfig(path string, opts *runOptions) error {
	train, test := opts.Train, opts.Test
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, opts); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q: use .toml, .yaml or .yml", filepath.Ext(path))
	}
	base := filepath.Dir(path)
	if opts.Train != train && opts.Train != "" && !filepath.IsAbs(opts.Train) {
		opts.Train = filepath.Join(base, opts.Train)
	}
	if opts.Test != test && opts.Test != "" && !filepath.IsAbs(opts.Test) {
		opts.Test = filepath.Join(base, opts.Test)
	}
	return nil
}

func bindRunFlags(fs *flag.FlagSet, opts *runOptions, islands bool) {
	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "TOML or YAML run configuration file")
	fs.StringVar(&opts.Name, "name", opts.Name, "run name")
	fs.StringVar(&opts.RunID, "run-id", opts.RunID, "explicit run id (default: random uuid)")
	fs.StringVar(&opts.Train, "train", opts.Train, "training split (tab table or .csv)")
	fs.StringVar(&opts.Test, "test", opts.Test, "test split (tab table or .csv)")
	fs.IntVar(&opts.PopulationSize, "pop", opts.PopulationSize, "population size per (sub)population")
	fs.Float64Var(&opts.CrossoverProbability, "xo", opts.CrossoverProbability, "crossover probability")
	fs.IntVar(&opts.PoolSize, "pool", opts.PoolSize, "tournament pool size")
	fs.StringVar(&opts.Selection, "selection", opts.Selection, "selection: tournament|fitness_proportionate|rank|pareto_rank")
	fs.StringVar(&opts.Variation, "variation", opts.Variation, "variation: standard|gsgp")
	fs.Float64Var(&opts.MutationStep, "ms", opts.MutationStep, "geometric semantic mutation step")
	fs.BoolVar(&opts.Bounded, "bounded", opts.Bounded, "bound geometric semantic mutation trees with a logistic")
	fs.IntVar(&opts.MaxInitDepth, "max-init-depth", opts.MaxInitDepth, "max depth of ramped half-and-half initialization")
	fs.IntVar(&opts.DepthLimit, "depth-limit", opts.DepthLimit, "replace offspring deeper than this by their first parent (0 = off)")
	fs.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	fs.StringVar(&opts.ReportDir, "report-dir", opts.ReportDir, "write a JSON run report into this directory")
	fs.StringVar(&opts.PlotPath, "plot", opts.PlotPath, "write a fitness plot to this path (.png, .svg, .pdf)")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "serve Prometheus metrics on this address while running")
	fs.BoolVar(&opts.JSON, "json", opts.JSON, "print the run summary as JSON")
	if islands {
		fs.IntVar(&opts.Islands.Count, "islands", opts.Islands.Count, "number of subpopulations")
		fs.IntVar(&opts.Islands.Turns, "turns", opts.Islands.Turns, "number of turns; migration happens between turns")
		fs.IntVar(&opts.Islands.GenerationsPerTurn, "gens-per-turn", opts.Islands.GenerationsPerTurn, "generations per turn")
		fs.IntVar(&opts.Islands.Migrants, "migrants", opts.Islands.Migrants, "individuals migrated per hop")
		fs.IntVar(&opts.Islands.Workers, "workers", opts.Islands.Workers, "max concurrently evolving subpopulations (0 = GOMAXPROCS)")
	} else {
		fs.IntVar(&opts.Generations, "gens", opts.Generations, "generations")
	}
}

// parseRunOptions parses args once to find --config, then again with the
// file values as flag defaults.
func parseRunOptions(name string, args []string, islands bool, common *commonFlags) (runOptions, error) {
	probe := defaultRunOptions()
	if err := newRunFlagSet(name, &probe, islands, common).Parse(args); err != nil {
		return runOptions{}, err
	}
	if probe.ConfigPath == "" {
		return probe, probe.validate()
	}

	opts := defaultRunOptions()
	if err := loadRunConfig(probe.ConfigPath, &opts); err != nil {
		return runOptions{}, err
	}
	fs := newRunFlagSet(name, &opts, islands, common)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}
	return opts, opts.validate()
}

func newRunFlagSet(name string, opts *runOptions, islands bool, common *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	bindRunFlags(fs, opts, islands)
	common.bind(fs)
	return fs
}

func (o runOptions) validate() error {
	if o.Train == "" || o.Test == "" {
		return errors.New("--train and --test are required (or set them in --config)")
	}
	_, err := o.gpConfig()
	return err
}

func (o runOptions) gpConfig() (evo.Config, error) {
	selection, err := evo.ParseSelectionMethod(o.Selection)
	if err != nil {
		return evo.Config{}, err
	}
	kind, err := variation.ParseMethodKind(o.Variation)
	if err != nil {
		return evo.Config{}, err
	}
	method := variation.Standard()
	if kind == variation.MethodGeometricSemantic {
		method = variation.GeometricSemantic(o.MutationStep, o.Bounded)
	}

	cfg := evo.DefaultConfig().
		WithName(o.Name).
		WithPopulationSize(o.PopulationSize).
		WithCrossoverProbability(o.CrossoverProbability).
		WithPoolSize(o.PoolSize).
		WithSelection(selection).
		WithVariation(method).
		WithDepthLimit(o.DepthLimit).
		WithSeed(o.Seed)
	cfg.MaxInitDepth = o.MaxInitDepth
	if err := cfg.Validate(); err != nil {
		return evo.Config{}, err
	}
	return cfg, nil
}
