package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Float is a float64 whose JSON form also carries NaN and the infinities,
// written as the strings "NaN", "+Inf" and "-Inf". Errors of diverging
// individuals are legitimately non-finite.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "+Inf", "Inf":
			*f = Float(math.Inf(1))
		case "-Inf":
			*f = Float(math.Inf(-1))
		default:
			return fmt.Errorf("invalid float %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

type runSummaryJSON RunSummary

func (r RunSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		runSummaryJSON
		BestTrain Float `json:"best_train"`
		BestTest  Float `json:"best_test"`
	}{runSummaryJSON(r), Float(r.BestTrain), Float(r.BestTest)})
}

func (r *RunSummary) UnmarshalJSON(data []byte) error {
	aux := struct {
		*runSummaryJSON
		BestTrain Float `json:"best_train"`
		BestTest  Float `json:"best_test"`
	}{(*runSummaryJSON)(r), Float(r.BestTrain), Float(r.BestTest)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.BestTrain, r.BestTest = float64(aux.BestTrain), float64(aux.BestTest)
	return nil
}

type generationDiagnosticsJSON GenerationDiagnostics

func (d GenerationDiagnostics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		generationDiagnosticsJSON
		BestTrain   Float `json:"best_train"`
		BestTest    Float `json:"best_test"`
		MeanTrain   Float `json:"mean_train"`
		StdDevTrain Float `json:"stddev_train"`
	}{generationDiagnosticsJSON(d), Float(d.BestTrain), Float(d.BestTest), Float(d.MeanTrain), Float(d.StdDevTrain)})
}

func (d *GenerationDiagnostics) UnmarshalJSON(data []byte) error {
	aux := struct {
		*generationDiagnosticsJSON
		BestTrain   Float `json:"best_train"`
		BestTest    Float `json:"best_test"`
		MeanTrain   Float `json:"mean_train"`
		StdDevTrain Float `json:"stddev_train"`
	}{(*generationDiagnosticsJSON)(d), Float(d.BestTrain), Float(d.BestTest), Float(d.MeanTrain), Float(d.StdDevTrain)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.BestTrain, d.BestTest = float64(aux.BestTrain), float64(aux.BestTest)
	d.MeanTrain, d.StdDevTrain = float64(aux.MeanTrain), float64(aux.StdDevTrain)
	return nil
}

type migrationRecordJSON MigrationRecord

func (m MigrationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		migrationRecordJSON
		BestTrain Float `json:"best_train"`
	}{migrationRecordJSON(m), Float(m.BestTrain)})
}

func (m *MigrationRecord) UnmarshalJSON(data []byte) error {
	aux := struct {
		*migrationRecordJSON
		BestTrain Float `json:"best_train"`
	}{(*migrationRecordJSON)(m), Float(m.BestTrain)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.BestTrain = float64(aux.BestTrain)
	return nil
}
