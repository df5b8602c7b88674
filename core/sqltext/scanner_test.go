package sqltext

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Segment
	}{
		{
			name:  "plain code",
			query: "SELECT 1",
			want:  []Segment{{Code, "SELECT 1"}},
		},
		{
			name:  "string literal with doubled quote",
			query: "SELECT 'O''Brien' AS n",
			want: []Segment{
				{Code, "SELECT "},
				{StringLiteral, "'O''Brien'"},
				{Code, " AS n"},
			},
		},
		{
			name:  "escape string",
			query: `SELECT E'a\'b', x`,
			want: []Segment{
				{Code, "SELECT E"},
				{StringLiteral, `'a\'b'`},
				{Code, ", x"},
			},
		},
		{
			name:  "quoted identifier",
			query: `SELECT "a:b" FROM t`,
			want: []Segment{
				{Code, "SELECT "},
				{QuotedIdent, `"a:b"`},
				{Code, " FROM t"},
			},
		},
		{
			name:  "line comment keeps newline in code",
			query: "SELECT 1 -- :x\nFROM t",
			want: []Segment{
				{Code, "SELECT 1 "},
				{LineComment, "-- :x"},
				{Code, "\nFROM t"},
			},
		},
		{
			name:  "nested block comment",
			query: "SELECT /* a /* b */ c */ 1",
			want: []Segment{
				{Code, "SELECT "},
				{BlockComment, "/* a /* b */ c */"},
				{Code, " 1"},
			},
		},
		{
			name:  "dollar quoted",
			query: "SELECT $fn$ it's :x $fn$, $1",
			want: []Segment{
				{Code, "SELECT "},
				{DollarQuoted, "$fn$ it's :x $fn$"},
				{Code, ", $1"},
			},
		},
		{
			name:  "unterminated literal",
			query: "SELECT 'abc",
			want: []Segment{
				{Code, "SELECT "},
				{StringLiteral, "'abc"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.query)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split() mismatch (-want +got):\n%s", diff)
			}

			var joined strings.Builder
			for _, s := range got {
				joined.WriteString(s.Text)
			}
			if joined.String() != tt.query {
				t.Errorf("segments do not rebuild the query: %q", joined.String())
			}
		})
	}
}

func TestCodeOnly(t *testing.T) {
	got := CodeOnly("SELECT 'DELETE' /* DROP */ FROM t -- x")
	if strings.Contains(got, "DELETE") || strings.Contains(got, "DROP") {
		t.Errorf("CodeOnly() kept literal or comment text: %q", got)
	}
	if !strings.Contains(got, "FROM t") {
		t.Errorf("CodeOnly() lost code: %q", got)
	}
}
