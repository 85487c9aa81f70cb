package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvSource holds the whole parsed file. The reader is drained at open time
// so a malformed record rejects the upload before any row is applied.
type csvSource struct {
	records [][]string
	lines   []int
	pos     int
}

// openCSV accepts UTF-8 with or without BOM. Anything that is not valid
// UTF-8 is decoded as Shift_JIS, the default export encoding of Japanese
// Excel.
func openCSV(r io.Reader) (*csvSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FileFormatError{Reason: "read file", Err: err}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			return nil, &FileFormatError{Reason: "file is neither UTF-8 nor Shift_JIS text"}
		}
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	src := &csvSource{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return src, nil
		}
		if err != nil {
			var pe *csv.ParseError
			row := 0
			if errors.As(err, &pe) {
				row = pe.StartLine
			}
			return nil, &FileFormatError{Row: row, Reason: "malformed CSV", Err: err}
		}
		// encoding/csv skips blank lines, so the running record count
		// drifts from the line an editor shows.
		line, _ := cr.FieldPos(0)
		src.records = append(src.records, rec)
		src.lines = append(src.lines, line)
	}
}

func (s *csvSource) next() ([]string, int, error) {
	if s.pos >= len(s.records) {
		return nil, 0, io.EOF
	}
	i := s.pos
	s.pos++
	return s.records[i], s.lines[i], nil
}

func (s *csvSource) dateColumns([]int) {}

func (s *csvSource) close() error { return nil }
