package exporters

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/fbz-tec/pgxquery/internal/rowstest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var sampleColumns = []rowstest.Column{
	{Name: "id", OID: pgtype.Int4OID},
	{Name: "selite", OID: pgtype.TextOID},
}

// sampleRows is the three row fixture used across the exporter tests.
func sampleRows() *rowstest.Rows {
	return rowstest.New(sampleColumns,
		[]any{int32(1), "Ensimmäinen"},
		[]any{int32(2), "foobar"},
		[]any{int32(3), ""},
	)
}

func bigInt(v int64) *big.Int { return big.NewInt(v) }

func emptyRows() *rowstest.Rows {
	return rowstest.New(sampleColumns)
}

// numberedRows returns n rows (id, name).
func numberedRows(n int) *rowstest.Rows {
	data := make([][]any, n)
	for i := range data {
		data[i] = []any{int32(i + 1), "row"}
	}
	return rowstest.New([]rowstest.Column{
		{Name: "id", OID: pgtype.Int4OID},
		{Name: "name", OID: pgtype.TextOID},
	}, data...)
}

// cancelAfter cancels the returned context once n rows were handed out.
func cancelAfter(rows *rowstest.Rows, n int) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	rows.OnNext = func(consumed int) {
		if consumed == n {
			cancel()
		}
	}
	return ctx
}

func setupTestDB(t *testing.T) (*pgx.Conn, func()) {
	t.Helper()
	testURL := os.Getenv("DB_TEST_URL")
	if testURL == "" {
		t.Skip("Skipping test: DB_TEST_URL not set")
	}

	conn, err := pgx.Connect(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	return conn, func() { conn.Close(context.Background()) }
}
