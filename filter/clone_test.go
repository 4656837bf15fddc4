package filter

import (
	"testing"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

func TestCopyIsDeep(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	v := NewVar(3, 1, catalog.Int8OID, -1)
	blob := NewConst(catalog.ByteaOID, []byte("abc"))
	orig := And(
		NewOp(mustOp(t, cat, "=", catalog.Int8OID, catalog.Int4OID), v, NewConst(catalog.Int4OID, int32(1))),
		NewNullTest(NewVar(3, 2, catalog.ByteaOID, -1), false),
		NewOp(mustOp(t, cat, "=", catalog.ByteaOID, catalog.ByteaOID), NewVar(3, 2, catalog.ByteaOID, -1), blob),
	)

	c := Copy(orig).(*BoolExpression)
	ChangeVarNodes(c, 3, 1, 0)
	c.Args[2].(*OpExpression).Args[1].(*ConstExpression).Value.Data.([]byte)[0] = 'X'

	Walk(orig, func(e Expression) bool {
		if v, ok := e.(*VarExpression); ok && v.RelIndex != 3 {
			t.Errorf("original column reference renumbered to %d", v.RelIndex)
		}
		return true
	})
	if string(blob.Value.Data.([]byte)) != "abc" {
		t.Errorf("original constant bytes modified: %q", blob.Value.Data)
	}

	var renumbered int
	Walk(c, func(e Expression) bool {
		if v, ok := e.(*VarExpression); ok {
			if v.RelIndex != 1 {
				t.Errorf("copied column reference not renumbered: %d", v.RelIndex)
			}
			renumbered++
		}
		return true
	})
	if renumbered != 3 {
		t.Errorf("expected 3 column references, got %d", renumbered)
	}
}

func TestChangeVarNodesRespectsLevels(t *testing.T) {
	inner := NewVar(2, 1, catalog.Int4OID, -1)
	outer := NewVar(2, 2, catalog.Int4OID, -1)
	outer.LevelsUp = 1
	other := NewVar(5, 1, catalog.Int4OID, -1)

	ChangeVarNodes(Or(NewNullTest(inner, true), NewNullTest(outer, true), NewNullTest(other, true)), 2, 1, 0)

	if inner.RelIndex != 1 {
		t.Errorf("expected level-0 reference renumbered, got %d", inner.RelIndex)
	}
	if outer.RelIndex != 2 {
		t.Errorf("expected outer reference untouched, got %d", outer.RelIndex)
	}
	if other.RelIndex != 5 {
		t.Errorf("expected other relation untouched, got %d", other.RelIndex)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := And(
		Not(NewNullTest(NewVar(1, 1, catalog.Int4OID, -1), true)),
		NewNullTest(NewVar(1, 2, catalog.Int4OID, -1), true),
	)
	var visited []ExpressionClass
	Walk(tree, func(e Expression) bool {
		visited = append(visited, e.Class())
		return e.Type() != TypeNot
	})
	want := []ExpressionClass{ClassBoolExpr, ClassBoolExpr, ClassNullTest, ClassVar}
	if len(visited) != len(want) {
		t.Fatalf("expected %v, got %v", want, visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d: expected %s, got %s", i, want[i], visited[i])
		}
	}
}
