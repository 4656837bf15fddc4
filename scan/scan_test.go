package scan

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/ifx-fdw/auth"
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/conv"
	"github.com/hugr-lab/ifx-fdw/filter"
	"github.com/hugr-lab/ifx-fdw/options"
)

type fixture struct {
	t        *testing.T
	db       *sql.DB
	cat      *catalog.StaticCatalog
	registry *conncache.Registry
	planner  *Planner
	opened   int
}

var testServer = &catalog.ForeignServer{
	OID:  1,
	Name: "duck",
	Options: map[string]string{
		"informixserver": "duck",
		"driver":         "duckdb",
		"literal_style":  "ansi",
	},
	UserMappings: map[string]map[string]string{
		catalog.PublicUser: {"username": "informix"},
		"bernd":            {"username": "bernd", "password": "secret"},
	},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("DuckDB not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE inttest (f1 BIGINT, f2 INTEGER, f3 VARCHAR, d DATE, b BOOLEAN)`,
		`INSERT INTO inttest VALUES
			(1, 10, 'one', DATE '2024-01-01', true),
			(2, 20, 'two', DATE '2024-01-02', false),
			(3, NULL, 'three', NULL, NULL),
			(4, 40, NULL, DATE '2024-01-04', true),
			(5, 50, 'five', DATE '2024-01-05', false)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	columns := []catalog.Column{
		{AttNum: 1, Name: "f1", TypeOID: catalog.Int8OID, Typmod: -1},
		{AttNum: 2, Name: "f2", TypeOID: catalog.Int4OID, Typmod: -1},
		{AttNum: 3, Name: "f3", TypeOID: catalog.TextOID, Typmod: -1},
		{AttNum: 4, Name: "d", TypeOID: catalog.DateOID, Typmod: -1},
		{AttNum: 5, Name: "b", TypeOID: catalog.BoolOID, Typmod: -1},
	}
	mismatched := append([]catalog.Column(nil), columns...)
	mismatched[2] = catalog.Column{AttNum: 3, Name: "f3", TypeOID: catalog.Int4OID, Typmod: -1}

	f := &fixture{t: t, db: db}
	f.cat = catalog.NewStaticCatalog(catalog.WithRelations(
		&catalog.Relation{OID: 16384, Name: "inttest", Server: testServer, Columns: columns,
			Options: map[string]string{"database": "regression", "table": "inttest", "estimated_rows": "5"}},
		&catalog.Relation{OID: 16385, Name: "mismatch", Server: testServer, Columns: mismatched,
			Options: map[string]string{"database": "regression", "table": "inttest"}},
		&catalog.Relation{OID: 16386, Name: "evens", Server: testServer, Columns: columns,
			Options: map[string]string{"database": "regression", "query": "SELECT * FROM inttest WHERE f1 % 2 = 0"}},
	))
	f.registry = conncache.New()
	t.Cleanup(func() { f.registry.Close() })
	f.planner = NewPlanner(f.registry, f.cat, WithOpener(f.open))
	return f
}

// open hands out the shared DuckDB handle for every connection name.
func (f *fixture) open(ctx context.Context, info *options.ConnectionInfo) (*sql.DB, error) {
	f.opened++
	return f.db, nil
}

func (f *fixture) rel(name string) *catalog.Relation {
	f.t.Helper()
	rel, err := f.cat.Relation(context.Background(), name)
	if err != nil {
		f.t.Fatalf("relation %s: %v", name, err)
	}
	return rel
}

func (f *fixture) f1Greater(v int64) filter.Expression {
	op, err := f.cat.OperatorByName(">", catalog.Int8OID, catalog.Int8OID)
	if err != nil {
		f.t.Fatalf("operator: %v", err)
	}
	return filter.NewOp(op, filter.NewVar(1, 1, catalog.Int8OID, -1), filter.NewConst(catalog.Int8OID, v))
}

func TestPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.planner.Plan(ctx, f.rel("inttest"), 1, []filter.Expression{f.f1Greater(1)})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Query != "SELECT * FROM inttest WHERE f1 > 1" || !plan.Pushed || !plan.Exact {
		t.Errorf("unexpected query %q (pushed=%v exact=%v)", plan.Query, plan.Pushed, plan.Exact)
	}
	if plan.StartupCost != NewConnectionStartupCost || plan.ConnectionCached {
		t.Errorf("expected new connection startup cost, got %g", plan.StartupCost)
	}
	if plan.Rows != 5 || plan.TotalCost != 500+100+5*TupleCost {
		t.Errorf("unexpected estimates rows=%g total=%g", plan.Rows, plan.TotalCost)
	}
	if plan.ConnName != "informix-regression-duck" || plan.CursorName != "informix-regression-duck_1_cur" {
		t.Errorf("unexpected names %q %q", plan.ConnName, plan.CursorName)
	}
	if plan.ID == "" {
		t.Error("expected plan id")
	}

	again, err := f.planner.Plan(ctx, f.rel("inttest"), 1, nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if again.StartupCost != CachedConnectionStartupCost || !again.ConnectionCached {
		t.Errorf("expected cached connection startup cost, got %g", again.StartupCost)
	}
	if again.Query != "SELECT * FROM inttest" || again.StatementName != "informix-regression-duck_2" {
		t.Errorf("unexpected query %q statement %q", again.Query, again.StatementName)
	}
	if f.opened != 1 {
		t.Errorf("expected one opened connection, got %d", f.opened)
	}

	userCtx := auth.WithIdentity(ctx, "bernd")
	other, err := f.planner.Plan(userCtx, f.rel("inttest"), 1, nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if other.ConnName != "bernd-regression-duck" || other.ConnectionCached {
		t.Errorf("expected a new connection for bernd, got %q cached=%v", other.ConnName, other.ConnectionCached)
	}
}

func TestPlanQueryTableNotPushed(t *testing.T) {
	f := newFixture(t)
	plan, err := f.planner.Plan(context.Background(), f.rel("evens"), 1, []filter.Expression{f.f1Greater(1)})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Pushed || plan.Query != "SELECT * FROM inttest WHERE f1 % 2 = 0" {
		t.Errorf("query table got condition appended: %q", plan.Query)
	}
	if len(plan.Fragments) != 1 || plan.Fragments[0] != "f1 > 1" {
		t.Errorf("unexpected fragments %v", plan.Fragments)
	}
}

func TestPlanErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orphan := &catalog.Relation{OID: 1, Name: "orphan"}
	if _, err := f.planner.Plan(ctx, orphan, 1, nil); !errors.Is(err, ErrNoServer) {
		t.Errorf("expected ErrNoServer, got %v", err)
	}

	bad := *f.rel("inttest")
	bad.Options = map[string]string{"database": "regression", "table": "inttest", "schema": "x"}
	if _, err := f.planner.Plan(ctx, &bad, 1, nil); !errors.Is(err, options.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}

	bogus := filter.NewBool("XOR_EXPR", f.f1Greater(1), f.f1Greater(2))
	if _, err := f.planner.Plan(ctx, f.rel("inttest"), 1, []filter.Expression{bogus}); err == nil {
		t.Error("expected error for unknown connective")
	}
}

func TestPlanMarshal(t *testing.T) {
	f := newFixture(t)
	plan, err := f.planner.Plan(context.Background(), f.rel("inttest"), 1, []filter.Expression{f.f1Greater(3)})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	blob, err := plan.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := UnmarshalPlan(blob)
	if err != nil {
		t.Fatalf("UnmarshalPlan failed: %v", err)
	}
	if got.ID != plan.ID || got.Query != plan.Query || got.RelationOID != plan.RelationOID || got.StartupCost != plan.StartupCost {
		t.Errorf("plan changed: %+v", got)
	}
	if _, err := UnmarshalPlan([]byte("garbage")); err == nil {
		t.Error("expected error for garbage blob")
	}
}

func TestExplain(t *testing.T) {
	p := &Plan{ConnectionCosts: 100, Rows: 250, Query: "SELECT * FROM inttest WHERE f1 > 1"}
	props := Explain(p, true)
	want := []ExplainProperty{
		{"Remote server startup cost", "100.0000"},
		{"Remote table row estimate", "250.0000"},
		{"Informix query", "SELECT * FROM inttest WHERE f1 > 1"},
	}
	if len(props) != len(want) {
		t.Fatalf("expected %d properties, got %v", len(want), props)
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("property %d: expected %v, got %v", i, want[i], props[i])
		}
	}
	if props := Explain(p, false); len(props) != 1 || props[0].Name != "Informix query" {
		t.Errorf("unexpected properties without costs: %v", props)
	}
}

func (f *fixture) execute(plan *Plan, alloc memory.Allocator, batchSize int) []arrow.Record {
	f.t.Helper()
	exec := NewExecutor(f.registry, f.cat, f.cat, WithAllocator(alloc), WithBatchSize(batchSize))
	if err := exec.Begin(context.Background(), plan); err != nil {
		f.t.Fatalf("Begin failed: %v", err)
	}
	defer exec.Close()

	var records []arrow.Record
	for {
		rec, err := exec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.t.Fatalf("Next failed: %v", err)
		}
		records = append(records, rec)
	}
	return records
}

func TestExecutor(t *testing.T) {
	f := newFixture(t)
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	plan, err := f.planner.Plan(context.Background(), f.rel("inttest"), 1, []filter.Expression{f.f1Greater(1)})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	records := f.execute(plan, alloc, 3)
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	if len(records) != 2 || records[0].NumRows() != 3 || records[1].NumRows() != 1 {
		t.Fatalf("expected batches of 3 and 1 rows, got %d records", len(records))
	}

	first := records[0]
	f1 := first.Column(0).(*array.Int64)
	f2 := first.Column(1).(*array.Int32)
	f3 := first.Column(2).(*array.String)
	d := first.Column(3).(*array.Date32)
	b := first.Column(4).(*array.Boolean)

	if f1.Value(0) != 2 || f2.Value(0) != 20 || f3.Value(0) != "two" || b.Value(0) {
		t.Errorf("unexpected first row")
	}
	if got := d.Value(0).ToTime(); !got.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", got)
	}
	if !f2.IsNull(1) || !d.IsNull(1) || !b.IsNull(1) || f3.Value(1) != "three" {
		t.Errorf("expected NULLs in second row")
	}
	if !f3.IsNull(2) {
		t.Errorf("expected NULL f3 in third row")
	}

	entry, ok := f.registry.Table(16384)
	if !ok || len(entry.Attrs) != 5 {
		t.Errorf("expected described attributes cached, got %+v", entry)
	}
}

func TestExecutorTypeMismatch(t *testing.T) {
	f := newFixture(t)
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	plan, err := f.planner.Plan(context.Background(), f.rel("mismatch"), 1, nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	exec := NewExecutor(f.registry, f.cat, f.cat, WithAllocator(alloc))
	if err := exec.Begin(context.Background(), plan); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer exec.Close()

	_, err = exec.Next()
	var mismatch *conv.IncompatibleTypeError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if mismatch.Column != "f3" || mismatch.Local != catalog.Int4OID {
		t.Errorf("unexpected mismatch %+v", mismatch)
	}
}

func TestExecutorNotStarted(t *testing.T) {
	f := newFixture(t)
	exec := NewExecutor(f.registry, f.cat, f.cat)
	if _, err := exec.Next(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
	if err := exec.Begin(context.Background(), &Plan{RelationName: "inttest", RelationOID: 16384, ConnName: "nobody"}); !errors.Is(err, ErrConnectionGone) {
		t.Errorf("expected ErrConnectionGone, got %v", err)
	}
}

func TestWriterInsert(t *testing.T) {
	f := newFixture(t)
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "f1", Type: arrow.PrimitiveTypes.Int64},
		{Name: "f3", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "d", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(alloc, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{100, 101}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"hundred", ""}, []bool{true, false})
	b.Field(2).(*array.Date32Builder).Append(arrow.Date32FromTime(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)))
	b.Field(2).(*array.Date32Builder).AppendNull()
	rec := b.NewRecord()
	defer rec.Release()

	w := NewWriter(f.registry, f.cat, f.open, nil)
	n, err := w.Insert(context.Background(), f.rel("inttest"), rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}

	var f3 sql.NullString
	var d sql.NullTime
	if err := f.db.QueryRow("SELECT f3, d FROM inttest WHERE f1 = 100").Scan(&f3, &d); err != nil {
		t.Fatalf("query: %v", err)
	}
	if f3.String != "hundred" || !d.Time.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected row %v %v", f3, d)
	}
	if err := f.db.QueryRow("SELECT f3, d FROM inttest WHERE f1 = 101").Scan(&f3, &d); err != nil {
		t.Fatalf("query: %v", err)
	}
	if f3.Valid || d.Valid {
		t.Errorf("expected NULLs, got %v %v", f3, d)
	}

	stats := f.registry.Stats()
	if len(stats) != 1 || stats[0].TxCommits != 1 {
		t.Errorf("expected one committed transaction, got %+v", stats)
	}

	if _, err := w.Insert(context.Background(), f.rel("evens"), rec); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestWriterUnknownColumn(t *testing.T) {
	f := newFixture(t)
	schema := arrow.NewSchema([]arrow.Field{{Name: "nope", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).Append(1)
	rec := b.NewRecord()
	defer rec.Release()

	w := NewWriter(f.registry, f.cat, f.open, nil)
	if _, err := w.Insert(context.Background(), f.rel("inttest"), rec); !errors.Is(err, conv.ErrNoSuchColumn) {
		t.Errorf("expected ErrNoSuchColumn, got %v", err)
	}
}
