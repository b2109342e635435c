package evo

import (
	"fmt"
	"math"

	"gpforge/internal/variation"
)

const DefaultMaxInitDepth = 6

// Config is the immutable configuration of a single-population run. The
// With* methods return modified copies.
type Config struct {
	Name                 string           `json:"name,omitempty" toml:"name" yaml:"name"`
	PopulationSize       int              `json:"population_size" toml:"population_size" yaml:"population_size"`
	CrossoverProbability float64          `json:"crossover_probability" toml:"crossover_probability" yaml:"crossover_probability"`
	PoolSize             int              `json:"pool_size" toml:"pool_size" yaml:"pool_size"`
	Selection            SelectionMethod  `json:"selection" toml:"selection" yaml:"selection"`
	Variation            variation.Method `json:"variation" toml:"variation" yaml:"variation"`
	MaxInitDepth         int              `json:"max_init_depth" toml:"max_init_depth" yaml:"max_init_depth"`
	// DepthLimit replaces offspring deeper than the limit with a copy of
	// their first parent; 0 disables it.
	DepthLimit int   `json:"depth_limit,omitempty" toml:"depth_limit" yaml:"depth_limit"`
	Seed       int64 `json:"seed" toml:"seed" yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		PopulationSize:       100,
		CrossoverProbability: 0.9,
		PoolSize:             4,
		Selection:            SelectionTournament,
		Variation:            variation.Standard(),
		MaxInitDepth:         DefaultMaxInitDepth,
	}
}

func (c Config) WithName(name string) Config               { c.Name = name; return c }
func (c Config) WithPopulationSize(n int) Config           { c.PopulationSize = n; return c }
func (c Config) WithCrossoverProbability(p float64) Config { c.CrossoverProbability = p; return c }
func (c Config) WithPoolSize(n int) Config                 { c.PoolSize = n; return c }
func (c Config) WithSelection(m SelectionMethod) Config    { c.Selection = m; return c }
func (c Config) WithVariation(m variation.Method) Config   { c.Variation = m; return c }
func (c Config) WithDepthLimit(limit int) Config           { c.DepthLimit = limit; return c }
func (c Config) WithSeed(seed int64) Config                { c.Seed = seed; return c }

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPopulationSize, c.PopulationSize)
	}
	if c.CrossoverProbability < 0 || c.CrossoverProbability > 1 || math.IsNaN(c.CrossoverProbability) {
		return fmt.Errorf("%w: %g", ErrInvalidCrossoverProbability, c.CrossoverProbability)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPoolSize, c.PoolSize)
	}
	if c.MaxInitDepth < 1 {
		return fmt.Errorf("%w: max initial depth %d", ErrInvalidDepth, c.MaxInitDepth)
	}
	if c.DepthLimit < 0 {
		return fmt.Errorf("%w: depth limit %d", ErrInvalidDepth, c.DepthLimit)
	}
	if _, err := NewSelector(c.Selection, c.PoolSize); err != nil {
		return err
	}
	if _, err := c.Variation.Strategy(); err != nil {
		return err
	}
	return nil
}
