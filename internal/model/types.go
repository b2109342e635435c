package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunMode distinguishes single-population runs from island runs.
type RunMode string

const (
	RunModeSingle  RunMode = "single"
	RunModeIslands RunMode = "islands"
)

// RunSummary is the persisted outcome of one evolution run. BestFormula is a
// display rendering only; runs are not reloadable.
type RunSummary struct {
	VersionedRecord
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Mode           RunMode   `json:"mode"`
	Variation      string    `json:"variation"`
	Selection      string    `json:"selection"`
	PopulationSize int       `json:"population_size"`
	Subpopulations int       `json:"subpopulations"`
	Turns          int       `json:"turns,omitempty"`
	Generations    int       `json:"generations"`
	Seed           int64     `json:"seed"`
	BestTrain      float64   `json:"best_train"`
	BestTest       float64   `json:"best_test"`
	BestSize       int       `json:"best_size"`
	BestDepth      int       `json:"best_depth"`
	BestFormula    string    `json:"best_formula,omitempty"`
	BestIsland     int       `json:"best_island"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// GenerationDiagnostics is one generation of one subpopulation.
type GenerationDiagnostics struct {
	Island      int     `json:"island"`
	Generation  int     `json:"generation"`
	Population  int     `json:"population"`
	BestTrain   float64 `json:"best_train"`
	BestTest    float64 `json:"best_test"`
	BestSize    int     `json:"best_size"`
	BestDepth   int     `json:"best_depth"`
	MeanTrain   float64 `json:"mean_train"`
	StdDevTrain float64 `json:"stddev_train"`
}

// MigrationRecord is one ring hop between subpopulations.
type MigrationRecord struct {
	Turn      int     `json:"turn"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Count     int     `json:"count"`
	BestTrain float64 `json:"best_train"`
}
