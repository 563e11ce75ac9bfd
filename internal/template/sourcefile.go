// Package template builds organism models from ModelSEED template source
// files. A template pairs a universal catalog of metabolites and reactions
// with the roles, complexes, compartments, and biomass recipes for one domain
// of organisms, and reconstructs a draft metabolic model from a genome's
// annotated features.
package template

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DuplicateError is returned when a source file defines the same ID twice.
type DuplicateError struct {
	ID   string
	Line int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("object with ID %s on line %d is a duplicate", e.ID, e.Line)
}

// ValidateHeader maps field names from a header line to column numbers and
// confirms that every required field is present. Columns may appear in any
// order.
func ValidateHeader(fields []string, required []string) (map[string]int, error) {
	names := make(map[string]int, len(fields))
	for i, name := range fields {
		names[name] = i
	}
	for _, req := range required {
		if _, ok := names[req]; !ok {
			return nil, fmt.Errorf("required field %s is missing from header line", req)
		}
	}
	return names, nil
}

// sourceRecord is one data line from a tab delimited source file.
type sourceRecord struct {
	fields []string
	names  map[string]int
	line   int
}

// get returns the value of the named field.
func (r sourceRecord) get(name string) string {
	return r.fields[r.names[name]]
}

// getOrNull returns the value of the named field, or "null" when the file
// does not have the column.
func (r sourceRecord) getOrNull(name string) string {
	i, ok := r.names[name]
	if !ok {
		return "null"
	}
	return r.fields[i]
}

// readSource reads a tab delimited source file with a header line and calls
// fn for each data line that has enough fields. Lines with too few fields are
// counted and reported in the skipped return value.
func readSource(r io.Reader, required []string, fn func(rec sourceRecord) error) (skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	if !scanner.Scan() {
		return 0, fmt.Errorf("source file is empty")
	}
	names, err := ValidateHeader(strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t"), required)
	if err != nil {
		return 0, err
	}
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < len(required) {
			skipped++
			continue
		}
		if err := fn(sourceRecord{fields: fields, names: names, line: line}); err != nil {
			return skipped, err
		}
	}
	return skipped, scanner.Err()
}

// readSourceFile opens filename and reads it with readSource.
func readSourceFile(filename string, required []string, fn func(rec sourceRecord) error) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	skipped, err := readSource(f, required, fn)
	if err != nil {
		return skipped, fmt.Errorf("%s: %w", filename, err)
	}
	return skipped, nil
}
