package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/xuri/excelize/v2"
)

// captions label each machine key on the first workbook row.
var captions = map[domain.Field]string{
	domain.FieldFullName:       "氏名",
	domain.FieldFullNameKana:   "氏名（カナ）",
	domain.FieldEmail:          "メールアドレス",
	domain.FieldGender:         "性別（男/女/その他）",
	domain.FieldBirthDate:      "生年月日（YYYY-MM-DD）",
	domain.FieldStudentNumber:  "学籍番号",
	domain.FieldGrade:          "学年",
	domain.FieldClassName:      "クラス",
	domain.FieldEmployeeNumber: "社員番号",
	domain.FieldDepartment:     "部署",
	domain.FieldPosition:       "役職",
}

var samples = map[domain.Kind][]map[domain.Field]string{
	domain.KindSchool: {
		{
			domain.FieldFullName: "山田 太郎", domain.FieldFullNameKana: "ヤマダ タロウ",
			domain.FieldEmail: "yamada@example.com", domain.FieldGender: "男",
			domain.FieldBirthDate: "2010-04-01", domain.FieldStudentNumber: "S001",
			domain.FieldGrade: "1", domain.FieldClassName: "1-A",
		},
	},
	domain.KindCompany: {
		{
			domain.FieldFullName: "佐藤 花子", domain.FieldFullNameKana: "サトウ ハナコ",
			domain.FieldEmail: "sato@example.com", domain.FieldGender: "女",
			domain.FieldBirthDate: "1990-05-15", domain.FieldEmployeeNumber: "E001",
			domain.FieldDepartment: "営業部", domain.FieldPosition: "主任",
		},
	},
}

// TemplateFilename is the suggested download name.
func TemplateFilename(kind domain.Kind, format Format) string {
	return fmt.Sprintf("roster_template_%s.%s", kind, format)
}

// Template renders an empty roster for kind with one sample row. The column
// layout is kind.Allowed().
func Template(kind domain.Kind, format Format) ([]byte, error) {
	fields := kind.Allowed()
	if fields == nil {
		return nil, fmt.Errorf("sheet: unknown kind %q", kind)
	}

	keys := make([]string, len(fields))
	labels := make([]string, len(fields))
	var rows [][]string
	for i, f := range fields {
		keys[i] = string(f)
		labels[i] = captions[f]
	}
	for _, sample := range samples[kind] {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = sample[f]
		}
		rows = append(rows, row)
	}

	switch format {
	case FormatCSV:
		return csvTemplate(keys, rows)
	case FormatXLSX:
		return xlsxTemplate(string(kind), labels, keys, rows)
	default:
		return nil, fmt.Errorf("sheet: unknown format %q", format)
	}
}

func csvTemplate(keys []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(keys); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxTemplate(sheetName string, labels, keys []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	// Text format keeps dates and leading zeros exactly as typed.
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}
	captionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	last, err := excelize.ColumnNumberToName(len(keys))
	if err != nil {
		return nil, err
	}
	if err := f.SetColStyle(sheetName, "A:"+last, textStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", last, 22); err != nil {
		return nil, err
	}

	all := append([][]string{labels, keys}, rows...)
	for i, row := range all {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+1), &cells); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(sheetName, 1, 1, captionStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
