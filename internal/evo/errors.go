package evo

import "errors"

var (
	ErrInvalidPoolSize             = errors.New("invalid selection pool size")
	ErrInvalidPopulationSize       = errors.New("invalid population size")
	ErrInvalidCrossoverProbability = errors.New("crossover probability must be in [0, 1]")
	ErrInvalidDepth                = errors.New("invalid tree depth")
	ErrNotImplemented              = errors.New("selection policy not implemented")
	ErrEmptyPopulation             = errors.New("population is empty")
	ErrRunFinished                 = errors.New("run already finished")
	ErrInvalidTurns                = errors.New("turns must be >= 1")
	ErrNoSubpopulations            = errors.New("no subpopulations configured")
	ErrUnknownSelection            = errors.New("unknown selection method")
)
