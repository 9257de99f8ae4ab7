package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/export"
)

func TestAsUsageErrorUnwraps(t *testing.T) {
	base := usageError{errors.New("--base-url is required")}
	wrapped := fmt.Errorf("running command: %w", base)

	var ue usageError
	assert.True(t, asUsageError(wrapped, &ue))
	assert.Equal(t, "--base-url is required", ue.Error())
}

func TestAsUsageErrorFalseForOrdinaryError(t *testing.T) {
	var ue usageError
	assert.False(t, asUsageError(errors.New("network timeout"), &ue))
}

func TestExportWriterPicksByExtension(t *testing.T) {
	w, ext := exportWriter("out/catalog.xlsx")
	assert.Equal(t, "xlsx", ext)
	assert.IsType(t, export.XLSXWriter{}, w)

	w, ext = exportWriter("out/catalog.csv")
	assert.Equal(t, "csv", ext)
	assert.IsType(t, export.CSVWriter{}, w)

	w, ext = exportWriter("")
	assert.Equal(t, "csv", ext)
	assert.IsType(t, export.CSVWriter{}, w)
}

func TestErrorsExportPathAppendsSuffix(t *testing.T) {
	assert.Equal(t, "export/catalog_2026_errors.csv", errorsExportPath("export/catalog_2026.csv", "csv"))
}
