package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is the container format of an uploaded export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat infers the format from a file name or MIME type.
func DetectFormat(nameOrMime string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(nameOrMime))
	switch {
	case strings.HasSuffix(v, ".csv"), v == "text/csv", v == "csv":
		return FormatCSV, nil
	case strings.HasSuffix(v, ".xlsx"), v == "xlsx",
		v == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}
	if ext := filepath.Ext(v); ext != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, nameOrMime)
}

// recordFunc receives each row with its 1-based line number. The header is line 1.
type recordFunc func(line int, record []string) error

// readRecords streams rows of the first sheet (XLSX) or the whole file (CSV) into fn.
func readRecords(r io.Reader, format Format, fn recordFunc) error {
	switch format {
	case FormatCSV:
		return readCSV(r, fn)
	case FormatXLSX:
		return readXLSX(r, fn)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func readCSV(r io.Reader, fn recordFunc) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func readXLSX(r io.Reader, fn recordFunc) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx file has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	line := 0
	for rows.Next() {
		line++
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read xlsx row %d: %w", line, err)
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}

	if err := rows.Error(); err != nil {
		return fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	return nil
}
