package sheet

import (
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/xuri/excelize/v2"
)

// Workbook layout: row 1 is a caption for humans, row 2 holds the machine
// keys, data starts on row 3.
const captionRows = 1

// sheetNames are matched case-insensitively against workbook tab names.
var sheetNames = map[domain.Kind][]string{
	domain.KindSchool:  {"school", "学校"},
	domain.KindCompany: {"company", "企業", "会社"},
}

type xlsxSource struct {
	display  [][]string
	raw      [][]string
	date1904 bool
	dates    []int
	pos      int
}

// openXLSX loads the whole sheet twice, once as displayed and once as
// stored. The stored values let date columns recover the serial behind a
// formatted date cell.
func openXLSX(r io.Reader, kind domain.Kind) (*xlsxSource, error) {
	f, err := excelize.OpenReader(r, excelize.Options{UnzipSizeLimit: 64 << 20})
	if err != nil {
		return nil, &FileFormatError{Reason: "unreadable workbook", Err: err}
	}
	defer func() { _ = f.Close() }()

	name, ok := pickSheet(f.GetSheetList(), kind)
	if !ok {
		return nil, &FileFormatError{Reason: "workbook has no sheets"}
	}

	display, err := readSheet(f, name)
	if err != nil {
		return nil, err
	}
	raw, err := readSheet(f, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(display) <= captionRows {
		return nil, &FileFormatError{Reason: "sheet " + name + " is empty"}
	}

	src := &xlsxSource{display: display, raw: raw, pos: captionRows}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		src.date1904 = *props.Date1904
	}
	return src, nil
}

// readSheet is GetRows without its silent stop on a bad row: any read error
// rejects the file. Index i holds physical row i+1, blank rows included.
func readSheet(f *excelize.File, name string, opts ...excelize.Options) ([][]string, error) {
	rows, err := f.Rows(name)
	if err != nil {
		return nil, &FileFormatError{Reason: "unreadable sheet " + name, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out [][]string
	for number := 1; rows.Next(); number++ {
		cells, err := rows.Columns(opts...)
		if err != nil {
			return nil, &FileFormatError{Row: number, Reason: "unreadable row", Err: err}
		}
		out = append(out, cells)
	}
	if err := rows.Error(); err != nil {
		return nil, &FileFormatError{Row: len(out) + 1, Reason: "unreadable row", Err: err}
	}

	// Drop trailing blank rows so the caption check sees real content.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// pickSheet prefers a tab named for kind. Otherwise schools use the first
// tab and companies the second, or the only one.
func pickSheet(names []string, kind domain.Kind) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	for _, name := range names {
		folded := strings.ToLower(normalize.Value(name))
		for _, want := range sheetNames[kind] {
			if folded == want {
				return name, true
			}
		}
	}
	if kind == domain.KindCompany && len(names) > 1 {
		return names[1], true
	}
	return names[0], true
}

// next returns rows by physical position, so numbering stays aligned with
// the editor.
func (s *xlsxSource) next() ([]string, int, error) {
	if s.pos >= len(s.display) {
		return nil, 0, io.EOF
	}
	i := s.pos
	s.pos++

	cells := slices.Clone(s.display[i])
	for _, col := range s.dates {
		if col >= len(cells) || i >= len(s.raw) || col >= len(s.raw[i]) {
			continue
		}
		if v, ok := s.serialDate(cells[col], s.raw[i][col]); ok {
			cells[col] = v
		}
	}
	return cells, i + 1, nil
}

// serialDate converts a date cell. A cell counts as a date when its stored
// value is a number but Excel renders it as something else; text typed as
// YYYY-MM-DD is stored and shown the same way and passes through.
func (s *xlsxSource) serialDate(shown, stored string) (string, bool) {
	if shown == stored {
		return "", false
	}
	serial, err := strconv.ParseFloat(stored, 64)
	if err != nil {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, s.date1904)
	if err != nil {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

func (s *xlsxSource) dateColumns(cols []int) { s.dates = cols }

func (s *xlsxSource) close() error { return nil }
