// Package importer builds a catalog (SQLite tables plus vector file) from tabular files
// whose rows already carry vectors.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	colName   = "name"
	colGenre  = "genre"
	colVector = "vector"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv, .jsonl and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// Record is one parsed catalog row.
type Record struct {
	Name     string
	Genre    string
	Vector   []float32
	Metadata map[string]interface{}
}

// ReadFile parses the file at path, choosing the format by extension.
func ReadFile(path string) ([]*Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ReadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ReadBytes parses content based on ext, which includes the leading dot (e.g. ".csv").
func ReadBytes(content []byte, ext string) ([]*Record, error) {
	switch ext {
	case ".csv":
		return readCSV(bytes.NewReader(content))
	case ".jsonl", ".ndjson":
		return readJSONL(bytes.NewReader(content))
	case ".xlsx":
		return readXLSX(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readCSV(r io.Reader) ([]*Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return fromRows(rows)
}

func readXLSX(content []byte) ([]*Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// fromRows converts a header row plus data rows. Columns other than name, genre and vector
// become string metadata.
func fromRows(rows [][]string) ([]*Record, error) {
	if len(rows) == 0 {
		return nil, errors.New("missing header row")
	}
	header := make([]string, len(rows[0]))
	nameCol, genreCol, vectorCol := -1, -1, -1
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		switch header[i] {
		case colName:
			nameCol = i
		case colGenre:
			genreCol = i
		case colVector:
			vectorCol = i
		}
	}
	if nameCol < 0 || vectorCol < 0 {
		return nil, fmt.Errorf("header must contain %q and %q columns", colName, colVector)
	}

	records := make([]*Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlankRow(row) {
			continue
		}
		cell := func(col int) string {
			if col < 0 || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}
		vec, err := ParseVector(cell(vectorCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rec := &Record{Name: cell(nameCol), Genre: cell(genreCol), Vector: vec}
		for col, h := range header {
			if col == nameCol || col == genreCol || col == vectorCol || h == "" {
				continue
			}
			if v := cell(col); v != "" {
				if rec.Metadata == nil {
					rec.Metadata = make(map[string]interface{})
				}
				rec.Metadata[h] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

type jsonRecord map[string]json.RawMessage

func readJSONL(r io.Reader) ([]*Record, error) {
	var records []*Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var raw jsonRecord
		if err := json.Unmarshal(text, &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := &Record{}
		if err := decodeOptional(raw, colName, &rec.Name); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := decodeOptional(raw, colGenre, &rec.Genre); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vecRaw, ok := raw[colVector]
		if !ok {
			return nil, fmt.Errorf("line %d: missing %q", line, colVector)
		}
		if err := json.Unmarshal(vecRaw, &rec.Vector); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colVector, err)
		}
		for key, value := range raw {
			if key == colName || key == colGenre || key == colVector {
				continue
			}
			var v interface{}
			if err := json.Unmarshal(value, &v); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, key, err)
			}
			if v == nil {
				continue
			}
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]interface{})
			}
			rec.Metadata[key] = v
		}
		rec.Name = strings.TrimSpace(rec.Name)
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return records, nil
}

func decodeOptional(raw jsonRecord, key string, dst *string) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// ParseVector parses a vector cell such as "0.1 0.2", "0.1,0.2", "0.1;0.2" or "[0.1, 0.2]".
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, errors.New("empty vector")
	}
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
