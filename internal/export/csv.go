package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

// CSVWriter writes the canonical column set to a comma-separated file via
// the standard library's encoding/csv.
type CSVWriter struct{}

// WriteRecords writes records, sorted ascending by case-insensitive Name,
// to destination in the canonical column order. An empty records slice
// still writes a header-only file.
func (CSVWriter) WriteRecords(records []*product.Record, destination string) (string, error) {
	if err := ensureDir(destination); err != nil {
		return "", err
	}
	f, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("creating CSV file %s: %w", destination, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(product.ColumnOrder); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range PrepareRecords(records) {
		if err := w.Write(r.ToRow()); err != nil {
			return "", fmt.Errorf("writing CSV row for %s: %w", r.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV file: %w", err)
	}
	return destination, nil
}

// WriteErrors writes the QC errors bucket as a two-column "subject, detail"
// CSV, one row per violation.
func (CSVWriter) WriteErrors(errorsByKey map[string][]string, destination string) (string, error) {
	if err := ensureDir(destination); err != nil {
		return "", err
	}
	f, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("creating error CSV file %s: %w", destination, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"subject_key", "detail"}); err != nil {
		return "", fmt.Errorf("writing error CSV header: %w", err)
	}
	for key, issues := range errorsByKey {
		for _, issue := range issues {
			if err := w.Write([]string{key, issue}); err != nil {
				return "", fmt.Errorf("writing error CSV row for %s: %w", key, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing error CSV file: %w", err)
	}
	return destination, nil
}
