package storage

import (
	"encoding/json"
	"errors"

	"gpforge/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(run model.RunSummary) model.RunSummary {
	run.SchemaVersion = CurrentSchemaVersion
	run.CodecVersion = CurrentCodecVersion
	return run
}

func EncodeRun(run model.RunSummary) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunSummary, error) {
	var run model.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func EncodeMigrations(migrations []model.MigrationRecord) ([]byte, error) {
	return json.Marshal(migrations)
}

func DecodeMigrations(data []byte) ([]model.MigrationRecord, error) {
	var migrations []model.MigrationRecord
	if err := json.Unmarshal(data, &migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
