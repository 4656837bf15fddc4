package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/options"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	info, err := options.Resolve(
		options.Options{"informixserver": "ol_informix1170", "driver": "duckdb", "dsn": ":memory:", "client_locale": "en_US.utf8"},
		options.Options{"username": "informix"},
		options.Options{"database": "regression", "table": "inttest"},
	)
	require.NoError(t, err)

	db, err := Open(context.Background(), info)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE inttest (
		f1 BIGINT, f2 INTEGER, f3 VARCHAR, d DATE, b BOOLEAN, s SMALLINT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inttest VALUES
		(1, 10, 'one', DATE '2024-01-31', true, 7),
		(2, NULL, 'two', NULL, false, NULL),
		(3, 30, NULL, DATE '1999-12-31', NULL, -3)`)
	require.NoError(t, err)
	return db
}

func TestCursorLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c, err := Prepare(ctx, db, "informix-regression-ol_informix1170_1", "SELECT f1, f2, f3, d, b, s FROM inttest ORDER BY f1")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Open(ctx))

	attrs := c.Attrs()
	require.Len(t, attrs, 6)
	kinds := []ifx.Kind{ifx.KindBigInt, ifx.KindInteger, ifx.KindVarChar, ifx.KindDate, ifx.KindBoolean, ifx.KindSmallInt}
	for i, k := range kinds {
		require.Equal(t, k, attrs[i].Kind, "attribute %s", attrs[i].Name)
	}

	area := c.Area()
	buf := make([]byte, 64)

	require.NoError(t, c.Fetch())
	n, ok := area.BigIntAsString(0, buf)
	require.True(t, ok)
	require.Equal(t, "1", string(buf[:n]))
	v, ok := area.Int4(1)
	require.True(t, ok)
	require.Equal(t, int32(10), v)
	s, ok := area.Text(2)
	require.True(t, ok)
	require.Equal(t, "one", s)
	n, ok = area.DateAsString(3, buf)
	require.True(t, ok)
	require.Equal(t, "2024-01-31", string(buf[:n]))
	bv, ok := area.Bool(4)
	require.True(t, ok)
	require.True(t, bv)
	sv, ok := area.Int2(5)
	require.True(t, ok)
	require.Equal(t, int16(7), sv)

	require.NoError(t, c.Fetch())
	require.True(t, area.Attr(1).IsNull())
	require.True(t, area.Attr(3).IsNull())
	require.False(t, area.Attr(2).IsNull())

	require.NoError(t, c.Fetch())
	sv, ok = area.Int2(5)
	require.True(t, ok)
	require.Equal(t, int16(-3), sv)

	require.ErrorIs(t, c.Fetch(), ErrNoData)
	require.Equal(t, int64(3), c.Fetched())

	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Fetch(), ErrClosed)
}

func TestDescribeQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	attrs, err := DescribeQuery(ctx, db, "SELECT f1, f3 FROM inttest")
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	require.Equal(t, "f1", attrs[0].Name)
	require.Equal(t, ifx.KindVarChar, attrs[1].Kind)

	_, err = DescribeQuery(ctx, db, "SELECT 1.5::DOUBLE AS x")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

type recorder struct {
	commits, rollbacks int
	name               string
}

func (r *recorder) RecordTransaction(name string, committed bool) {
	r.name = name
	if committed {
		r.commits++
	} else {
		r.rollbacks++
	}
}

func TestInserter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	attrs, err := DescribeQuery(ctx, db, "SELECT f1, f2, f3 FROM inttest")
	require.NoError(t, err)
	require.Equal(t, "INSERT INTO inttest (f1, f2, f3) VALUES (?, ?, ?)", InsertSQL("duckdb", "inttest", attrs))
	require.Equal(t, "INSERT INTO inttest (f1, f2, f3) VALUES ($1, $2, $3)", InsertSQL("pgx", "inttest", attrs))

	rec := &recorder{}
	ins, err := NewInserter(ctx, db, "duckdb", "conn", "inttest", attrs, rec)
	require.NoError(t, err)

	area := ins.Area()
	area.SetIndicator(0, ifx.IndicatorNotNull)
	require.NoError(t, area.SetBigInt(0, "42"))
	area.SetIndicator(1, ifx.IndicatorNotNull)
	require.NoError(t, area.SetInteger(1, 420))
	require.ErrorIs(t, area.SetInteger(2, 1), ifx.ErrKindMismatch)
	require.NoError(t, ins.Exec(ctx))

	area.SetIndicator(0, ifx.IndicatorNotNull)
	require.NoError(t, area.SetBigInt(0, "43"))
	area.SetIndicator(2, ifx.IndicatorNotNull)
	require.NoError(t, area.SetText(2, "forty-three"))
	require.NoError(t, ins.Exec(ctx))

	require.NoError(t, ins.Commit())
	require.Equal(t, int64(2), ins.Inserted())
	require.Equal(t, 1, rec.commits)
	require.Equal(t, "conn", rec.name)
	require.NoError(t, ins.Rollback())
	require.Equal(t, 0, rec.rollbacks)

	var f2 sql.NullInt64
	var f3 sql.NullString
	require.NoError(t, db.QueryRow("SELECT f2, f3 FROM inttest WHERE f1 = 42").Scan(&f2, &f3))
	require.Equal(t, int64(420), f2.Int64)
	require.False(t, f3.Valid)
	require.NoError(t, db.QueryRow("SELECT f2, f3 FROM inttest WHERE f1 = 43").Scan(&f2, &f3))
	require.False(t, f2.Valid)
	require.Equal(t, "forty-three", f3.String)
}

func TestInserterRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	attrs, err := DescribeQuery(ctx, db, "SELECT f1 FROM inttest")
	require.NoError(t, err)
	rec := &recorder{}
	ins, err := NewInserter(ctx, db, "duckdb", "conn", "inttest", attrs, rec)
	require.NoError(t, err)

	ins.Area().SetIndicator(0, ifx.IndicatorNotNull)
	require.NoError(t, ins.Area().SetBigInt(0, "99"))
	require.NoError(t, ins.Exec(ctx))
	require.NoError(t, ins.Rollback())
	require.ErrorIs(t, ins.Exec(ctx), ErrClosed)
	require.Equal(t, 1, rec.rollbacks)

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM inttest WHERE f1 = 99").Scan(&count))
	require.Equal(t, 0, count)
}

func TestOpenError(t *testing.T) {
	info, err := options.Resolve(
		options.Options{"informixserver": "srv", "driver": "no-such-driver"},
		nil,
		options.Options{"database": "db", "table": "t"},
	)
	require.NoError(t, err)
	_, err = Open(context.Background(), info)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoData))
}
