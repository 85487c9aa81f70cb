package sheet_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/sheet"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

func readAll(t *testing.T, r *sheet.Reader) []sheet.Row {
	t.Helper()
	var rows []sheet.Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := sheet.DetectFormat("roster.CSV")
	require.NoError(t, err)
	require.Equal(t, sheet.FormatCSV, f)

	f, err = sheet.DetectFormat("名簿.xlsx")
	require.NoError(t, err)
	require.Equal(t, sheet.FormatXLSX, f)

	for _, name := range []string{"old.xls", "roster.txt", "noext"} {
		_, err := sheet.DetectFormat(name)
		var fe *sheet.FileFormatError
		require.ErrorAs(t, err, &fe, name)
	}
}

func TestCSV(t *testing.T) {
	data := "\ufeffEmail, full_name ,grade\n" +
		"a@x.com,Aiko,'1\n" +
		",,\n" +
		"b@x.com,Ben\n"

	r, err := sheet.Open(strings.NewReader(data), sheet.FormatCSV, domain.KindSchool)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, []string{"email", "full_name", "grade"}, r.Header())

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	require.Equal(t, 2, rows[0].Number)
	require.Equal(t, map[string]string{"email": "a@x.com", "full_name": "Aiko", "grade": "'1"}, rows[0].Cells)
	require.Equal(t, 4, rows[1].Number, "blank row keeps its number")
	require.Equal(t, "", rows[1].Cells["grade"], "short record pads missing cells")
}

func TestCSV_BlankLinesKeepLineNumbers(t *testing.T) {
	data := "email,full_name\n" +
		"a@x.com,Aiko\n" +
		"\n" +
		"b@x.com,Ben\n" +
		"\n\n" +
		"c@x.com,\"Chie\nSato\"\n" +
		"d@x.com,Dai\n"

	r, err := sheet.Open(strings.NewReader(data), sheet.FormatCSV, domain.KindSchool)
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 4)
	require.Equal(t, 2, rows[0].Number)
	require.Equal(t, 4, rows[1].Number, "encoding/csv drops the blank line but the editor still shows it")
	require.Equal(t, 7, rows[2].Number)
	require.Equal(t, "Chie\nSato", rows[2].Cells["full_name"])
	require.Equal(t, 9, rows[3].Number, "a quoted newline spans two lines")
}

func TestCSV_ReadFailureRejectsWholeFile(t *testing.T) {
	body := io.MultiReader(
		strings.NewReader("email,full_name\na@x.com,Aiko\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)

	_, err := sheet.Open(body, sheet.FormatCSV, domain.KindSchool)
	var fe *sheet.FileFormatError
	require.ErrorAs(t, err, &fe, "no row may be handed out from a file that did not read completely")
}

func TestCSV_ShiftJIS(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().String("email,full_name\na@x.com,山田 太郎\n")
	require.NoError(t, err)

	r, err := sheet.Open(strings.NewReader(encoded), sheet.FormatCSV, domain.KindSchool)
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	require.Equal(t, "山田 太郎", rows[0].Cells["full_name"])
}

func TestCSV_HeaderProblems(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty file", ""},
		{"duplicate column", "email,full_name,EMAIL\n"},
		{"no email column", "full_name,grade\nAiko,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sheet.Open(strings.NewReader(tt.data), sheet.FormatCSV, domain.KindSchool)
			var fe *sheet.FileFormatError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestCSV_EmptyHeaderCellDropsColumn(t *testing.T) {
	r, err := sheet.Open(strings.NewReader("email,,full_name\na@x.com,junk,Aiko\n"), sheet.FormatCSV, domain.KindSchool)
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	require.Equal(t, map[string]string{"email": "a@x.com", "full_name": "Aiko"}, rows[0].Cells)
}

func workbook(t *testing.T, sheets map[string][][]any, order ...string) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for rowIdx, row := range sheets[name] {
			if row == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestXLSX(t *testing.T) {
	school := [][]any{
		{"氏名", "メール", "学年"},
		{"full_name", "email", "grade"},
		{"Aiko", "a@x.com", 1},
		nil,
		{"Ben", "b@x.com", "'2"},
	}
	company := [][]any{
		{"caption"},
		{"full_name", "email", "department"},
		{"Chie", "c@x.com", "Sales"},
	}

	t.Run("positional fallback for school", func(t *testing.T) {
		in := workbook(t, map[string][][]any{"first": school, "second": company}, "first", "second")
		r, err := sheet.Open(in, sheet.FormatXLSX, domain.KindSchool)
		require.NoError(t, err)
		defer r.Close()

		rows := readAll(t, r)
		require.Len(t, rows, 2)
		require.Equal(t, 3, rows[0].Number)
		require.Equal(t, "1", rows[0].Cells["grade"])
		require.Equal(t, 5, rows[1].Number)
	})

	t.Run("positional fallback for company", func(t *testing.T) {
		in := workbook(t, map[string][][]any{"first": school, "second": company}, "first", "second")
		r, err := sheet.Open(in, sheet.FormatXLSX, domain.KindCompany)
		require.NoError(t, err)
		defer r.Close()

		require.Equal(t, []string{"full_name", "email", "department"}, r.Header())
	})

	t.Run("named sheet wins over position", func(t *testing.T) {
		in := workbook(t, map[string][][]any{"企業": company, "学校": school}, "企業", "学校")
		r, err := sheet.Open(in, sheet.FormatXLSX, domain.KindSchool)
		require.NoError(t, err)
		defer r.Close()

		require.Equal(t, []string{"full_name", "email", "grade"}, r.Header())
	})

	t.Run("only sheet serves company", func(t *testing.T) {
		in := workbook(t, map[string][][]any{"roster": company}, "roster")
		r, err := sheet.Open(in, sheet.FormatXLSX, domain.KindCompany)
		require.NoError(t, err)
		defer r.Close()

		rows := readAll(t, r)
		require.Len(t, rows, 1)
		require.Equal(t, "Sales", rows[0].Cells["department"])
	})

	t.Run("caption only", func(t *testing.T) {
		in := workbook(t, map[string][][]any{"roster": {{"caption"}}}, "roster")
		_, err := sheet.Open(in, sheet.FormatXLSX, domain.KindSchool)
		var fe *sheet.FileFormatError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := sheet.Open(strings.NewReader("email,full_name\n"), sheet.FormatXLSX, domain.KindSchool)
		var fe *sheet.FileFormatError
		require.ErrorAs(t, err, &fe)
	})
}

func TestXLSX_DateCells(t *testing.T) {
	in := workbook(t, map[string][][]any{"roster": {
		{"caption"},
		{"full_name", "email", "birth_date", "grade"},
		{"Aiko", "a@x.com", time.Date(2010, 4, 1, 0, 0, 0, 0, time.UTC), 1},
		{"Ben", "b@x.com", "2011-05-02", 2},
		{"Chie", "c@x.com", 20120603, 3},
	}}, "roster")

	r, err := sheet.Open(in, sheet.FormatXLSX, domain.KindSchool)
	require.NoError(t, err)
	defer r.Close()

	rows := readAll(t, r)
	require.Len(t, rows, 3)
	require.Equal(t, "2010-04-01", rows[0].Cells["birth_date"], "date cell is read as its calendar date")
	require.Equal(t, "2011-05-02", rows[1].Cells["birth_date"], "text is left alone")
	require.Equal(t, "20120603", rows[2].Cells["birth_date"], "plain numbers are not dates")
	require.Equal(t, "1", rows[0].Cells["grade"], "only date columns are converted")
}

func TestTemplateRoundTrip(t *testing.T) {
	for _, kind := range []domain.Kind{domain.KindSchool, domain.KindCompany} {
		for _, format := range []sheet.Format{sheet.FormatXLSX, sheet.FormatCSV} {
			t.Run(string(kind)+"/"+string(format), func(t *testing.T) {
				data, err := sheet.Template(kind, format)
				require.NoError(t, err)

				r, err := sheet.Open(bytes.NewReader(data), format, kind)
				require.NoError(t, err)
				defer r.Close()

				var want []string
				for _, f := range kind.Allowed() {
					want = append(want, string(f))
				}
				require.Equal(t, want, r.Header())

				rows := readAll(t, r)
				require.Len(t, rows, 1)
				require.Contains(t, rows[0].Cells["email"], "@example.com")
				if format == sheet.FormatXLSX {
					require.Equal(t, 3, rows[0].Number)
				} else {
					require.Equal(t, 2, rows[0].Number)
				}
			})
		}
	}
}
