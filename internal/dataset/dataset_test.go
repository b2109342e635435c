package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromColumnsExposesTargetsAndDims(t *testing.T) {
	train := [][]float64{{1, 2, 3}, {2, 3, 4}, {3, 5, 7}}
	test := [][]float64{{4}, {5}, {9}}

	ds, err := FromColumns(train, test)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Dims())
	require.Equal(t, []float64{3, 5, 7}, ds.TrainTargets())
	require.Equal(t, []float64{9}, ds.TestTargets())
	require.Equal(t, 3, ds.TrainInstances())
	require.Equal(t, 1, ds.TestInstances())

	// the dataset owns its matrices
	train[0][0] = 100
	require.Equal(t, 1.0, ds.TrainMatrix()[0][0])
}

func TestFromColumnsRejectsBadShapes(t *testing.T) {
	cases := map[string]struct {
		train [][]float64
		test  [][]float64
	}{
		"target only":       {train: [][]float64{{1}}, test: [][]float64{{1}}},
		"ragged":            {train: [][]float64{{1, 2}, {1}}, test: [][]float64{{1}, {1}}},
		"column mismatch":   {train: [][]float64{{1}, {1}}, test: [][]float64{{1}, {1}, {1}}},
		"no test instances": {train: [][]float64{{1}, {1}}, test: [][]float64{{}, {}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromColumns(tc.train, tc.test)
			require.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestFromRowsTransposes(t *testing.T) {
	rows := [][]float64{{1, 2, 10}, {2, 3, 20}, {3, 4, 30}}
	ds, err := FromRows(rows, rows)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2, 3}, {2, 3, 4}, {10, 20, 30}}, ds.TrainMatrix())
}

func TestReadTable(t *testing.T) {
	in := "2\n3\n1\t2\t10\n2\t3\t20\n\n3\t4\t30\n"
	rows, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []float64{3, 4, 30}, rows[2])
}

func TestReadTableValidatesHeader(t *testing.T) {
	_, err := ReadTable(strings.NewReader("2\n4\n1\t2\t3\n"))
	require.ErrorIs(t, err, ErrShape)

	_, err = ReadTable(strings.NewReader("2\n1\n1\t2\n"))
	require.ErrorIs(t, err, ErrShape)

	_, err = ReadTable(strings.NewReader("two\n1\n"))
	require.Error(t, err)
}

func TestReadCSVSkipsHeaderAndBlankRows(t *testing.T) {
	in := "x0,x1,y\n1,2,3\n,,\n4,5,6\n"
	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, rows)
}

func TestLoadPicksParserByExtension(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.txt")
	testPath := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(trainPath, []byte("1\n2\n0.5\t1\n1.5\t3\n"), 0o644))
	require.NoError(t, os.WriteFile(testPath, []byte("x,y\n2,4\n"), 0o644))

	ds, err := Load(trainPath, testPath)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Dims())
	require.Equal(t, []float64{1, 3}, ds.TrainTargets())
	require.Equal(t, []float64{4}, ds.TestTargets())
}
