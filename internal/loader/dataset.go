// Package loader reads plan documents and datasets from disk. Plan
// documents are YAML validated against an embedded CUE schema before
// decoding; datasets load from csv, json, jsonl, yaml, or avro files into
// in-memory tables.
package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	goavro "github.com/linkedin/goavro/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/tabular"
)

// LoadDataset reads a file and returns a table. The format is chosen by
// file extension.
func LoadDataset(filename string) (*tabular.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return loadCSV(filename)
	case ".json":
		return loadJSON(filename)
	case ".jsonl":
		return loadJSONL(filename)
	case ".yaml", ".yml":
		return loadYAML(filename)
	case ".avro":
		return loadAvro(filename)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (supported: .csv, .json, .jsonl, .yaml, .avro)", ext)
	}
}

func loadCSV(filename string) (*tabular.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header from %s: %w", filename, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	t := tabular.New(columns...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV record from %s: %w", filename, err)
		}
		row := make(tabular.Row, len(record))
		for i, s := range record {
			row[i] = parseCSVValue(s)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// parseCSVValue infers a value kind from CSV text: int, float, bool, null
// for the empty string, otherwise string.
func parseCSVValue(s string) ir.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return ir.Null{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.Int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ir.Float(f)
	}
	switch s {
	case "true":
		return ir.Bool(true)
	case "false":
		return ir.Bool(false)
	}
	return ir.String(s)
}

func loadJSON(filename string) (*tabular.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	return tableFromRecords(records)
}

func loadJSONL(filename string) (*tabular.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("cannot parse line in %s: %w", filename, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tableFromRecords(records)
}

func loadYAML(filename string) (*tabular.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	return tableFromRecords(records)
}

func loadAvro(filename string) (*tabular.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	ocf, err := goavro.NewOCFReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("cannot read avro container from %s: %w", filename, err)
	}

	var records []map[string]any
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("cannot read avro record from %s: %w", filename, err)
		}
		rec, ok := datum.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("avro record in %s is %T, want a record", filename, datum)
		}
		records = append(records, flattenAvroUnions(rec))
	}
	return tableFromRecords(records)
}

// flattenAvroUnions unwraps goavro's union encoding: a union value decodes
// as a single-entry map keyed by the branch type name.
func flattenAvroUnions(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			for _, inner := range m {
				v = inner
			}
		}
		out[k] = v
	}
	return out
}

// tableFromRecords builds a table from keyed records. Columns are the
// sorted union of keys, for determinism; absent fields become null.
func tableFromRecords(records []map[string]any) (*tabular.Table, error) {
	keySet := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			keySet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	t := tabular.New(columns...)
	for i, rec := range records {
		row := make(tabular.Row, len(columns))
		for j, c := range columns {
			raw, ok := rec[c]
			if !ok {
				row[j] = ir.Null{}
				continue
			}
			v, err := ir.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("record %d, field %q: %w", i, c, err)
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
