// Package sheet reads member spreadsheets and writes the credential export.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheet  = errors.New("sheet: workbook has no sheets")
	ErrNoHeader = errors.New("sheet: first sheet has no header row")
)

// ReadRows reads the first sheet of an .xlsx workbook. The first row is the
// header; each following row becomes a map from trimmed header to cell
// text. Columns with a blank header are ignored.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet: read %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	named := 0
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, ErrNoHeader
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
