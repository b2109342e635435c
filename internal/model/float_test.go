package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatJSON(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want string
	}{
		{"finite", 0.25, `0.25`},
		{"positive infinity", math.Inf(1), `"+Inf"`},
		{"negative infinity", math.Inf(-1), `"-Inf"`},
		{"nan", math.NaN(), `"NaN"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(Float(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))

			var out Float
			require.NoError(t, json.Unmarshal(data, &out))
			if math.IsNaN(tc.in) {
				assert.True(t, math.IsNaN(float64(out)))
				return
			}
			assert.Equal(t, tc.in, float64(out))
		})
	}
}

func TestFloatRejectsUnknownString(t *testing.T) {
	var out Float
	require.ErrorContains(t, json.Unmarshal([]byte(`"huge"`), &out), "invalid float")
}

func TestRunSummaryJSONKeepsOtherFields(t *testing.T) {
	in := RunSummary{
		VersionedRecord: VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		ID:              "r1",
		Mode:            RunModeIslands,
		Generations:     7,
		BestTrain:       0.5,
		BestTest:        math.Inf(1),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "r1", fields["id"])
	assert.Equal(t, float64(1), fields["schema_version"])
	assert.Equal(t, 0.5, fields["best_train"])
	assert.Equal(t, "+Inf", fields["best_test"])

	var out RunSummary
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.VersionedRecord, out.VersionedRecord)
	assert.Equal(t, RunModeIslands, out.Mode)
	assert.Equal(t, 7, out.Generations)
	assert.True(t, math.IsInf(out.BestTest, 1))
}
