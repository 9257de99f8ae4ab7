// Package export implements the downstream writer contract: write_records
// and write_errors against a destination path, in the canonical column
// order, creating destination directories as needed and returning the
// written path or an error. Concrete writers cover CSV (encoding/csv) and
// styled XLSX (xuri/excelize/v2); optional upload sinks relay the written
// file to S3 or email once it's on disk.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/qc"
)

// Writer is the core's contract with a tabular destination.
type Writer interface {
	WriteRecords(records []*product.Record, destination string) (string, error)
	WriteErrors(errorsByKey map[string][]string, destination string) (string, error)
}

// UploadSink relays an already-written file somewhere beyond the local
// filesystem.
type UploadSink interface {
	Upload(ctx context.Context, path string) error
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory %s: %w", dir, err)
	}
	return nil
}

// PrepareRecords returns records sorted ascending by case-insensitive Name,
// the stable order the contract promises downstream writers. It does not
// mutate the input slice.
func PrepareRecords(records []*product.Record) []*product.Record {
	out := make([]*product.Record, len(records))
	copy(out, records)
	qc.SortByName(out)
	return out
}
