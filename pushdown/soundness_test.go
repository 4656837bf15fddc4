package pushdown

import (
	"database/sql"
	"fmt"
	"sort"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/filter"
)

type testRow struct {
	id     int
	f1, f2 *int64
}

func ptr(v int64) *int64 { return &v }

func nullable(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

var soundnessRows = []testRow{
	{1, ptr(101), nil},
	{2, ptr(1), ptr(2)},
	{3, ptr(3), nil},
	{4, ptr(100), ptr(1)},
	{5, ptr(150), ptr(2)},
	{6, nil, ptr(3)},
	{7, ptr(11), ptr(4)},
	{8, ptr(5), ptr(60)},
	{9, nil, nil},
	{10, ptr(101), ptr(3)},
	{11, ptr(50), ptr(2)},
	{12, ptr(3), ptr(9)},
}

// evaluator applies a filter tree to a row with SQL three-valued logic.
type evaluator struct {
	t   *testing.T
	cat *catalog.StaticCatalog
}

func (e *evaluator) value(expr filter.Expression, r testRow) *int64 {
	switch n := expr.(type) {
	case *filter.VarExpression:
		switch n.AttNum {
		case 1:
			return r.f1
		case 2:
			return r.f2
		}
	case *filter.ConstExpression:
		if n.Value.IsNull {
			return nil
		}
		v, ok := catalog.ToInt64(n.Value.Data)
		if !ok {
			e.t.Fatalf("non-integer constant %v", n.Value.Data)
		}
		return &v
	case *filter.OpExpression:
		lv, rv := e.value(n.Args[0], r), e.value(n.Args[1], r)
		if lv == nil || rv == nil {
			return nil
		}
		if e.operator(n).Name != "+" {
			e.t.Fatalf("unexpected arithmetic operator %s", e.operator(n).Name)
		}
		return ptr(*lv + *rv)
	}
	e.t.Fatalf("cannot evaluate %T as a value", expr)
	return nil
}

func (e *evaluator) operator(n *filter.OpExpression) *catalog.Operator {
	op, err := e.cat.Operator(n.OperatorOID)
	if err != nil {
		e.t.Fatalf("operator lookup: %v", err)
	}
	return op
}

// truth returns the boolean value and whether it is known (not NULL).
func (e *evaluator) truth(expr filter.Expression, row testRow) (bool, bool) {
	switch n := expr.(type) {
	case *filter.NullTestExpression:
		isNull := e.value(n.Arg, row) == nil
		if n.Type() == filter.TypeIsNull {
			return isNull, true
		}
		return !isNull, true
	case *filter.OpExpression:
		l, r := e.value(n.Args[0], row), e.value(n.Args[1], row)
		if l == nil || r == nil {
			return false, false
		}
		switch e.operator(n).Name {
		case "=":
			return *l == *r, true
		case "<>":
			return *l != *r, true
		case "<":
			return *l < *r, true
		case "<=":
			return *l <= *r, true
		case ">":
			return *l > *r, true
		case ">=":
			return *l >= *r, true
		}
	case *filter.BoolExpression:
		switch n.Type() {
		case filter.TypeNot:
			v, known := e.truth(n.Args[0], row)
			return !v, known
		case filter.TypeAnd:
			known := true
			for _, a := range n.Args {
				v, k := e.truth(a, row)
				if k && !v {
					return false, true
				}
				known = known && k
			}
			return true, known
		case filter.TypeOr:
			known := true
			for _, a := range n.Args {
				v, k := e.truth(a, row)
				if k && v {
					return true, true
				}
				known = known && k
			}
			return false, known
		}
	}
	e.t.Fatalf("cannot evaluate %T as a predicate", expr)
	return false, false
}

func (e *evaluator) matches(expr filter.Expression, row testRow) bool {
	v, known := e.truth(expr, row)
	return known && v
}

func openSoundnessDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("DuckDB not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE inttest (id INTEGER, f1 BIGINT, f2 INTEGER, f3 VARCHAR, ts TIMESTAMP)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, r := range soundnessRows {
		if _, err := db.Exec(`INSERT INTO inttest (id, f1, f2) VALUES (?, ?, ?)`, r.id, nullable(r.f1), nullable(r.f2)); err != nil {
			t.Fatalf("insert row %d: %v", r.id, err)
		}
	}
	return db
}

// TestPushdownSoundness checks that filtering remotely with the pushed-down
// condition and re-checking the full filter locally returns exactly the rows
// the full filter selects.
func TestPushdownSoundness(t *testing.T) {
	f := newFixture(t)
	db := openSoundnessDB(t)
	ev := &evaluator{t: t, cat: f.cat}

	f2Cmp := func(name string, v int32) *filter.OpExpression {
		return filter.NewOp(f.op(name, catalog.Int4OID, catalog.Int4OID), f.f2(), filter.NewConst(catalog.Int4OID, v))
	}
	scenarioA := filter.Or(
		filter.NewOp(f.op("=", catalog.Int8OID, catalog.Int4OID), f.f1(), filter.NewConst(catalog.Int4OID, int32(101))),
		filter.NewNullTest(f.f2(), true),
	)

	tests := []struct {
		name   string
		expr   filter.Expression
		pushed bool
	}{
		{"scenario A", scenarioA, true},
		{"or below and", filter.And(filter.Or(f.f1Cmp(">", 10), f2Cmp("<", 5)), filter.NewNullTest(f.f2(), false)), false},
		{"negation", filter.Not(f.f1Cmp("=", 101)), false},
		{"dropped conjunct", filter.And(f.unsupported(), f2Cmp("=", 3)), true},
		{"dropped disjunct", filter.Or(f.unsupported(), f2Cmp("=", 3)), false},
		{"and of or", filter.And(f.f1Cmp(">=", 100), filter.Or(f2Cmp("=", 1), f2Cmp("=", 2))), false},
		{"or of ands", filter.Or(filter.And(f.f1Cmp("=", 1), f2Cmp("=", 2)), filter.And(f.f1Cmp("=", 3), filter.NewNullTest(f.f2(), true))), true},
		{"negated conjunction", filter.Not(filter.And(f.f1Cmp("=", 1), f2Cmp("=", 2))), false},
		{"not equal", f2Cmp("<>", 3), true},
		{"not null", filter.NewNullTest(f.f1(), false), true},
		{"unsupported only", f.unsupported(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := f.analyze(tt.expr)
			where := ctx.WhereClause()
			if pushed := where != ""; pushed != tt.pushed {
				t.Fatalf("expected pushed=%v, got where clause %q", tt.pushed, where)
			}

			query := "SELECT id, f1, f2 FROM inttest"
			if where != "" {
				query += " WHERE " + where
			}
			rows, err := db.Query(query)
			if err != nil {
				t.Fatalf("remote query %q: %v", query, err)
			}
			defer rows.Close()

			var got []int
			for rows.Next() {
				var r testRow
				var f1, f2 sql.NullInt64
				if err := rows.Scan(&r.id, &f1, &f2); err != nil {
					t.Fatalf("scan: %v", err)
				}
				if f1.Valid {
					r.f1 = ptr(f1.Int64)
				}
				if f2.Valid {
					r.f2 = ptr(f2.Int64)
				}
				if ev.matches(tt.expr, r) {
					got = append(got, r.id)
				}
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}
			sort.Ints(got)

			var want []int
			for _, r := range soundnessRows {
				if ev.matches(tt.expr, r) {
					want = append(want, r.id)
				}
			}

			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("where %q: expected rows %v, got %v", where, want, got)
			}
		})
	}
}
