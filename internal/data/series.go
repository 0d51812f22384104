package data

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hybrid-sizing/internal/model"
)

// seriesFile is the object form of a JSON series file.
type seriesFile struct {
	Values []float64 `json:"values"`
}

// LoadSeries reads an ordered numeric series from a .json or .csv file.
// JSON may be a bare array or {"values": [...]}. CSV uses the last column of each
// row and skips a non-numeric header.
func LoadSeries(path string) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseSeriesJSON(raw)
	case ".csv", ".txt":
		return ParseSeriesCSV(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported series file %q", model.ErrDataAlignment, path)
	}
}

func ParseSeriesJSON(raw []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, err
		}
		return values, nil
	}
	var f seriesFile
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, err
	}
	return f.Values, nil
}

func ParseSeriesCSV(raw []byte) ([]float64, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		cell := strings.TrimSpace(rec[len(rec)-1])
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("%w: row %d: %q is not numeric", model.ErrDataAlignment, i+1, cell)
		}
		out = append(out, v)
	}
	return out, nil
}
