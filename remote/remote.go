// Package remote runs remote statements through database/sql and exposes
// their current row through an ifx.DescriptorArea.
//
// A scan goes through prepare, open (declare, describe and open the cursor),
// fetch and close. The insert path prepares an INSERT statement and executes
// the values staged in its descriptor area.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/options"
)

var (
	// ErrNoData is returned by Fetch when the cursor is exhausted (SQLNOTFOUND).
	ErrNoData = errors.New("no data found")

	// ErrUnsupportedType is returned when a described remote column has a
	// type this client cannot map.
	ErrUnsupportedType = errors.New("unsupported remote type")

	// ErrClosed is returned by operations on a closed cursor.
	ErrClosed = errors.New("cursor is closed")
)

// Open opens the database handle of a remote connection and checks that the
// server is reachable. The Informix client environment given as options is
// exported before the driver connects.
func Open(ctx context.Context, info *options.ConnectionInfo) (*sql.DB, error) {
	for k, v := range info.Environment() {
		if err := os.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}
	db, err := sql.Open(info.Driver, info.DataSourceName())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Placeholder returns the n-th (1-based) bind placeholder for a driver.
func Placeholder(driver string, n int) string {
	switch driver {
	case "pgx", "postgres":
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Describe maps the column types of a result set to remote attributes.
func Describe(types []*sql.ColumnType) ([]ifx.AttrDef, error) {
	attrs := make([]ifx.AttrDef, len(types))
	for i, ct := range types {
		kind := ifx.ParseKind(ct.DatabaseTypeName())
		if kind == ifx.KindUnknown {
			return nil, fmt.Errorf("%w: column %q has type %s", ErrUnsupportedType, ct.Name(), ct.DatabaseTypeName())
		}
		attrs[i] = ifx.AttrDef{
			Ordinal:  i,
			Name:     ct.Name(),
			Kind:     kind,
			TypeName: ct.DatabaseTypeName(),
		}
		if kind.IsCharacter() {
			if n, ok := ct.Length(); ok && n > 0 && n < 1<<31 {
				attrs[i].Length = int(n)
			}
		}
	}
	return attrs, nil
}

// DescribeQuery returns the remote attributes of query without fetching rows.
func DescribeQuery(ctx context.Context, db *sql.DB, query string) ([]ifx.AttrDef, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM ("+query+") AS q WHERE 1 = 0")
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	defer rows.Close()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return Describe(types)
}

// TxRecorder counts finished remote transactions of a connection.
type TxRecorder interface {
	RecordTransaction(name string, committed bool)
}
