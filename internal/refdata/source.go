package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source fetches raw sheet rows. Implementations own authentication and
// transport; refdata owns schema validation and normalization.
type Source interface {
	Doctors(ctx context.Context) ([]map[string]string, error)
	Branches(ctx context.Context) ([]map[string]string, error)
	Services(ctx context.Context) ([]map[string]string, error)
	Availability(ctx context.Context) ([]map[string]string, error)
}

// CSVSource reads the four reference sheets from CSV exports in a directory:
// doctors.csv, branches.csv, services.csv, availability.csv. Used for local
// development and as the fallback when no spreadsheet integration is wired.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Doctors(ctx context.Context) ([]map[string]string, error) {
	return s.read(ctx, "doctors.csv")
}

func (s *CSVSource) Branches(ctx context.Context) ([]map[string]string, error) {
	return s.read(ctx, "branches.csv")
}

func (s *CSVSource) Services(ctx context.Context) ([]map[string]string, error) {
	return s.read(ctx, "services.csv")
}

func (s *CSVSource) Availability(ctx context.Context) ([]map[string]string, error) {
	return s.read(ctx, "availability.csv")
}

func (s *CSVSource) read(ctx context.Context, name string) ([]map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("refdata: open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("refdata: read %s header: %w", name, err)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("refdata: read %s: %w", name, err)
		}
		if isEmptyRow(record) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}
