package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

func TestCSVWriteRecordsSortedAndHeadered(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "out.csv")

	records := []*product.Record{
		{Name: "Zebra", SKU: "2", ProductURL: "https://x/z"},
		{Name: "Alfa", SKU: "1", ProductURL: "https://x/a"},
	}

	path, err := CSVWriter{}.WriteRecords(records, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, product.ColumnOrder, rows[0])
	assert.Equal(t, "Alfa", rows[1][0])
	assert.Equal(t, "Zebra", rows[2][0])
}

func TestCSVWriteRecordsEmptyStillWritesHeader(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	_, err := CSVWriter{}.WriteRecords(nil, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Name")
}

func TestCSVWriteErrors(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "errors.csv")
	errs := map[string][]string{
		"12345": {"missing ImageURL", "price not positive"},
	}
	_, err := CSVWriter{}.WriteErrors(errs, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "subject_key,detail")
	assert.Contains(t, content, "12345")
	assert.Contains(t, content, "missing ImageURL")
}
