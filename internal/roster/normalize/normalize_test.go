package normalize_test

import (
	"testing"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"empty", "", nil},
		{"whitespace only", " \t ", nil},
		{"ideographic space only", "　", nil},
		{"trims", "  Aiko ", strPtr("Aiko")},
		{"ideographic space inside", "山田　太郎", strPtr("山田 太郎")},
		{"strips BOM", "\ufeffemail", strPtr("email")},
		{"strips zero width", "a\u200bb", strPtr("ab")},
		{"strips control chars", "a\x00b\x07", strPtr("ab")},
		{"composes to NFC", "\u30cf\u309a", strPtr("\u30d1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalize.Text(tt.in))
		})
	}
}

func TestEmail(t *testing.T) {
	require.Equal(t, "aiko@example.com", normalize.Email("  Aiko@Example.COM\u200b "))
	require.Equal(t, "", normalize.Email(""))
}

func TestGender(t *testing.T) {
	vocabulary := map[string]domain.Gender{
		"male": domain.GenderMale, "MALE": domain.GenderMale, "M": domain.GenderMale,
		"男": domain.GenderMale, "男性": domain.GenderMale, "ＭＡＬＥ": domain.GenderMale,
		"female": domain.GenderFemale, "Female": domain.GenderFemale, "f": domain.GenderFemale,
		"女": domain.GenderFemale, "女性": domain.GenderFemale,
		"other": domain.GenderOther, "OTHER": domain.GenderOther, "その他": domain.GenderOther, "他": domain.GenderOther,
	}
	for in, want := range vocabulary {
		got, err := normalize.Gender(in)
		require.NoError(t, err, in)
		require.Equal(t, want, *got, in)
	}

	for _, in := range []string{"x", "unknown", "男子", "女の子", "mf", "0"} {
		_, err := normalize.Gender(in)
		var fe *normalize.FieldError
		require.ErrorAs(t, err, &fe, in)
		require.Equal(t, domain.FieldGender, fe.Field)
	}

	got, err := normalize.Gender("  ")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDate(t *testing.T) {
	want := time.Date(2010, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2010-04-01", "'2010-04-01", " 2010-04-01 ", "２０１０-０４-０１"} {
		got, err := normalize.Date(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(*got), in)
	}

	for _, in := range []string{"2010/04/01", "01-04-2010", "2010-13-01", "''2010-04-01", "yesterday"} {
		_, err := normalize.Date(in)
		require.Error(t, err, in)
	}

	got, err := normalize.Date("")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBoundedInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"'1", 1, false},
		{"１２", 12, false},
		{"0", 0, true},
		{"13", 0, true},
		{"-1", 0, true},
		{"1.0", 0, true},
		{"一", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalize.BoundedInt(domain.FieldGrade, tt.in, 1, 12)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
		})
	}

	got, err := normalize.BoundedInt(domain.FieldGrade, "", 1, 12)
	require.NoError(t, err)
	require.Nil(t, got)
}

func strPtr(s string) *string { return &s }
