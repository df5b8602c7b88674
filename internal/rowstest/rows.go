// Package rowstest provides an in-memory pgx.Rows for exercising exporters
// without a database.
package rowstest

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Column struct {
	Name string
	OID  uint32
}

// Rows replays fixed data. It satisfies pgx.Rows.
type Rows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	closed bool

	// FailAfter, when positive, stops iteration after that many rows and
	// reports FailErr from Err.
	FailAfter int
	FailErr   error

	// OnNext is called with the number of rows already consumed each time
	// Next is about to hand out another row.
	OnNext func(consumed int)
}

var _ pgx.Rows = (*Rows)(nil)

func New(cols []Column, data ...[]any) *Rows {
	fields := make([]pgconn.FieldDescription, len(cols))
	for i, c := range cols {
		fields[i] = pgconn.FieldDescription{Name: c.Name, DataTypeOID: c.OID}
	}
	return &Rows{fields: fields, data: data, pos: -1}
}

func (r *Rows) Close() { r.closed = true }

func (r *Rows) Closed() bool { return r.closed }

func (r *Rows) Err() error {
	if r.FailAfter > 0 && r.pos >= r.FailAfter {
		return r.FailErr
	}
	return nil
}

func (r *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.data)))
}

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	consumed := r.pos + 1
	if r.FailAfter > 0 && consumed >= r.FailAfter {
		r.pos = consumed
		r.closed = true
		return false
	}
	if consumed >= len(r.data) {
		r.closed = true
		return false
	}
	if r.OnNext != nil {
		r.OnNext(consumed)
	}
	r.pos = consumed
	return true
}

func (r *Rows) Scan(dest ...any) error {
	return errors.New("rowstest: Scan is not supported")
}

func (r *Rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return nil, errors.New("rowstest: no current row")
	}
	row := r.data[r.pos]
	if len(row) != len(r.fields) {
		return nil, fmt.Errorf("rowstest: row %d has %d values for %d columns", r.pos, len(row), len(r.fields))
	}
	return row, nil
}

func (r *Rows) RawValues() [][]byte { return nil }

func (r *Rows) Conn() *pgx.Conn { return nil }
