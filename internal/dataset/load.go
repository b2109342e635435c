package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadTable parses the tab-separated table format: the first line holds the
// number of input variables, the second the number of instances, and every
// following line one instance with the target value last.
func ReadTable(in io.Reader) ([][]float64, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	header := make([]int, 0, 2)
	rows := make([][]float64, 0, 256)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if len(header) < 2 {
			v, err := strconv.Atoi(text)
			if err != nil {
				return nil, fmt.Errorf("read table line %d: header: %w", line, err)
			}
			header = append(header, v)
			continue
		}
		fields := strings.Split(text, "\t")
		row := make([]float64, 0, len(fields))
		for idx, field := range fields {
			v, err := parseFloatField(field, line, idx)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if len(row) != header[0]+1 {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrShape, line, len(row), header[0]+1)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: missing dimension/instance header", ErrShape)
	}
	if len(rows) != header[1] {
		return nil, fmt.Errorf("%w: header declares %d instances, found %d", ErrShape, header[1], len(rows))
	}
	return rows, nil
}

// ReadCSV parses a comma-separated table with a header row; the last column
// is the target.
func ReadCSV(in io.Reader) ([][]float64, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty csv", ErrShape)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	rows := make([][]float64, 0, 256)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}
		row := make([]float64, 0, len(record))
		for idx, field := range record {
			v, err := parseFloatField(field, line, idx)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadFile reads a single split, picking the parser by file extension.
func LoadFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadTable(f)
}

// Load reads train and test splits and returns the combined dataset.
func Load(trainPath, testPath string) (*Dataset, error) {
	train, err := LoadFile(trainPath)
	if err != nil {
		return nil, fmt.Errorf("load train %s: %w", trainPath, err)
	}
	test, err := LoadFile(testPath)
	if err != nil {
		return nil, fmt.Errorf("load test %s: %w", testPath, err)
	}
	return FromRows(train, test)
}

func parseFloatField(raw string, line, idx int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d field %d: parse float %q: %w", line, idx, raw, err)
	}
	return v, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
