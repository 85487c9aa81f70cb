// Package sheet locates the roster table inside an uploaded file and yields
// its data rows one at a time.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType is the MIME type used when serving a file of this format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileFormatError rejects a whole file. Row is set when the problem was
// found partway through.
type FileFormatError struct {
	Row    int
	Reason string
	Err    error
}

func (e *FileFormatError) Error() string {
	msg := e.Reason
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FileFormatError) Unwrap() error { return e.Err }

// DetectFormat maps a file name onto a supported format. Legacy .xls
// workbooks are refused.
func DetectFormat(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return "", &FileFormatError{Reason: "legacy .xls workbooks are not supported, save as .xlsx"}
	default:
		return "", &FileFormatError{Reason: fmt.Sprintf("unsupported file type %q, use .csv or .xlsx", ext)}
	}
}

// Row is one data row. Number is the physical row in the source, counting
// from 1, so it matches what a spreadsheet editor shows.
type Row struct {
	Number int
	Cells  map[string]string
}

type column struct {
	index int
	key   string
}

// source yields raw records and their physical row numbers. dateColumns
// names the cell indexes that hold dates once the header is known.
type source interface {
	next() (cells []string, number int, err error)
	dateColumns(cols []int)
	close() error
}

// Reader iterates the data rows of one file. It is not safe for concurrent
// use and cannot be rewound.
type Reader struct {
	src     source
	columns []column
}

// Open reads and parses the whole file, so every file level problem is
// reported here as a *FileFormatError before a single row is handed out.
func Open(r io.Reader, format Format, kind domain.Kind) (*Reader, error) {
	var (
		src source
		err error
	)
	switch format {
	case FormatCSV:
		src, err = openCSV(r)
	case FormatXLSX:
		src, err = openXLSX(r, kind)
	default:
		err = &FileFormatError{Reason: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return nil, err
	}

	header, number, err := src.next()
	if err != nil {
		_ = src.close()
		if errors.Is(err, io.EOF) {
			return nil, &FileFormatError{Reason: "header row not found"}
		}
		return nil, err
	}

	columns, err := parseHeader(header, number)
	if err != nil {
		_ = src.close()
		return nil, err
	}

	var dates []int
	for _, c := range columns {
		if c.key == string(domain.FieldBirthDate) {
			dates = append(dates, c.index)
		}
	}
	src.dateColumns(dates)

	return &Reader{src: src, columns: columns}, nil
}

func parseHeader(cells []string, number int) ([]column, error) {
	var columns []column
	seen := make(map[string]bool, len(cells))
	for i, cell := range cells {
		key := strings.ToLower(normalize.Value(cell))
		if key == "" {
			continue
		}
		if seen[key] {
			return nil, &FileFormatError{Row: number, Reason: fmt.Sprintf("duplicate column %q", key)}
		}
		seen[key] = true
		columns = append(columns, column{index: i, key: key})
	}

	for _, required := range []domain.Field{domain.FieldEmail, domain.FieldFullName} {
		if !seen[string(required)] {
			return nil, &FileFormatError{Row: number, Reason: fmt.Sprintf("header has no %q column", required)}
		}
	}
	return columns, nil
}

// Header returns the column keys in file order.
func (r *Reader) Header() []string {
	keys := make([]string, len(r.columns))
	for i, c := range r.columns {
		keys[i] = c.key
	}
	return keys
}

// Next returns the next non-blank row, or io.EOF when the file is done.
func (r *Reader) Next() (Row, error) {
	for {
		cells, number, err := r.src.next()
		if err != nil {
			return Row{}, err
		}

		row := Row{Number: number, Cells: make(map[string]string, len(r.columns))}
		blank := true
		for _, c := range r.columns {
			var v string
			if c.index < len(cells) {
				v = cells[c.index]
			}
			row.Cells[c.key] = v
			if normalize.Text(v) != nil {
				blank = false
			}
		}
		if !blank {
			return row, nil
		}
	}
}

func (r *Reader) Close() error { return r.src.close() }
