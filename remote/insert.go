package remote

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hugr-lab/ifx-fdw/ifx"
)

// Inserter inserts rows into a remote table inside one transaction. Values
// are staged in its descriptor area through the ifx.Binder interface and sent
// with Exec.
type Inserter struct {
	connName string
	tx       *sql.Tx
	stmt     *sql.Stmt
	area     *ifx.DescriptorArea
	recorder TxRecorder
	done     bool
	inserted int64
}

// InsertSQL builds the INSERT statement for attrs.
func InsertSQL(driver, table string, attrs []ifx.AttrDef) string {
	cols := make([]string, len(attrs))
	params := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = a.Name
		params[i] = Placeholder(driver, i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// NewInserter begins a transaction on db and prepares the INSERT statement.
// recorder may be nil.
func NewInserter(ctx context.Context, db *sql.DB, driver, connName, table string, attrs []ifx.AttrDef, recorder TxRecorder) (*Inserter, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	query := InsertSQL(driver, table, attrs)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare %q: %w", query, err)
	}
	return &Inserter{
		connName: connName,
		tx:       tx,
		stmt:     stmt,
		area:     ifx.NewDescriptorArea(attrs),
		recorder: recorder,
	}, nil
}

// Area returns the descriptor area the write path stages values into.
func (i *Inserter) Area() *ifx.DescriptorArea {
	return i.area
}

// Inserted returns the number of rows inserted so far.
func (i *Inserter) Inserted() int64 {
	return i.inserted
}

// Exec inserts the staged row and resets the area to NULLs.
func (i *Inserter) Exec(ctx context.Context) error {
	if i.done {
		return ErrClosed
	}
	if _, err := i.stmt.ExecContext(ctx, i.area.Values()...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	i.area.Reset()
	i.inserted++
	return nil
}

// Commit commits the transaction.
func (i *Inserter) Commit() error {
	return i.finish(true)
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (i *Inserter) Rollback() error {
	return i.finish(false)
}

func (i *Inserter) finish(commit bool) error {
	if i.done {
		return nil
	}
	i.done = true
	i.stmt.Close()

	var err error
	if commit {
		err = i.tx.Commit()
	} else {
		err = i.tx.Rollback()
	}
	if i.recorder != nil {
		i.recorder.RecordTransaction(i.connName, commit && err == nil)
	}
	return err
}
