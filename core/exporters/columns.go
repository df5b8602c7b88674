package exporters

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

type column struct {
	index int
	name  string
	oid   uint32
}

// selectColumns applies the allow-list. An empty list keeps every column;
// the cursor's column order is kept either way.
func selectColumns(fields []pgconn.FieldDescription, include []string) []column {
	return lo.FilterMap(fields, func(fd pgconn.FieldDescription, i int) (column, bool) {
		if len(include) > 0 && !lo.Contains(include, fd.Name) {
			return column{}, false
		}
		return column{index: i, name: fd.Name, oid: fd.DataTypeOID}, true
	})
}
