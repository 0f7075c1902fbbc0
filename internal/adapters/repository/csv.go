package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/lapprice/internal/domain/model"
)

// CSVSource reads a dataset exported to a CSV file with a header row.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource { return &CSVSource{path: path} }

// Name implements Source.
func (s *CSVSource) Name() string { return "csv" }

// Fetch implements Source.
func (s *CSVSource) Fetch(_ context.Context) (*model.RawTable, error) {
	t, err := ReadCSVFile(s.path)
	if err != nil {
		if errors.Is(err, ErrMalformedFile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return strip(t), nil
}

// ReadCSVFile reads a CSV file written by WriteCSVFile or exported by pandas.
func ReadCSVFile(path string) (*model.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header row followed by records. Empty header names, as
// left by an unnamed index column, are kept as "Unnamed: <i>".
func ReadCSV(r io.Reader) (*model.RawTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedFile)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	for i, h := range header {
		if h == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	t := &model.RawTable{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			row[h] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes t with a header row in column order.
func WriteCSV(w io.Writer, t *model.RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = row[c]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path, creating parent directories.
func WriteCSVFile(path string, t *model.RawTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
