package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/shopspring/decimal"
)

func mustOp(t *testing.T, cat *catalog.StaticCatalog, name string, left, right catalog.OID) *catalog.Operator {
	t.Helper()
	op, err := cat.OperatorByName(name, left, right)
	if err != nil {
		t.Fatalf("operator %s(%s, %s): %v", name, left, right, err)
	}
	return op
}

func TestParseEmpty(t *testing.T) {
	expr, err := Parse(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if expr != nil {
		t.Errorf("expected nil expression, got %#v", expr)
	}

	clauses, err := ParseClauses([]byte("  "))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(clauses) != 0 {
		t.Errorf("expected 0 clauses, got %d", len(clauses))
	}
}

func TestParseOperatorByName(t *testing.T) {
	// WHERE f1 = 101
	data := []byte(`{
		"class": "OP_EXPR",
		"operator": "=",
		"args": [
			{"class": "VAR", "varno": 1, "varattno": 1, "data_type": "bigint"},
			{"class": "CONST", "value": 101}
		]
	}`)
	cat := catalog.NewStaticCatalog()

	expr, err := Parse(data, WithOperators(cat))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	op, ok := expr.(*OpExpression)
	if !ok {
		t.Fatalf("expected *OpExpression, got %T", expr)
	}
	want := mustOp(t, cat, "=", catalog.Int8OID, catalog.Int4OID)
	if op.OperatorOID != want.OID {
		t.Errorf("expected operator %d, got %d", want.OID, op.OperatorOID)
	}
	if op.ReturnType != catalog.BoolOID {
		t.Errorf("expected bool result, got %s", op.ReturnType)
	}

	v, ok := op.Args[0].(*VarExpression)
	if !ok {
		t.Fatalf("expected *VarExpression, got %T", op.Args[0])
	}
	if v.RelIndex != 1 || v.AttNum != 1 || v.ReturnType != catalog.Int8OID {
		t.Errorf("unexpected column reference %+v", v)
	}

	c, ok := op.Args[1].(*ConstExpression)
	if !ok {
		t.Fatalf("expected *ConstExpression, got %T", op.Args[1])
	}
	if c.Value.TypeOID != catalog.Int4OID || c.Value.Data != int32(101) {
		t.Errorf("expected int4 101, got %s %v (%T)", c.Value.TypeOID, c.Value.Data, c.Value.Data)
	}
}

func TestParseCoercesConstantOperand(t *testing.T) {
	data := []byte(`{
		"class": "OP_EXPR",
		"operator": "~~",
		"args": [
			{"class": "VAR", "varno": 2, "varattno": 3, "data_type": "varchar(20)"},
			{"class": "CONST", "value": "bernd%"}
		]
	}`)
	cat := catalog.NewStaticCatalog()

	expr, err := Parse(data, WithOperators(cat))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	op := expr.(*OpExpression)
	if want := mustOp(t, cat, "~~", catalog.VarcharOID, catalog.TextOID); op.OperatorOID != want.OID {
		t.Errorf("expected operator %d, got %d", want.OID, op.OperatorOID)
	}

	data = []byte(`{
		"class": "OP_EXPR",
		"operator": "<",
		"args": [
			{"class": "VAR", "varno": 1, "varattno": 4, "data_type": "date"},
			{"class": "CONST", "value": "2011-03-04"}
		]
	}`)
	expr, err = Parse(data, WithOperators(cat))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	op = expr.(*OpExpression)
	c := op.Args[1].(*ConstExpression)
	if c.Value.TypeOID != catalog.DateOID {
		t.Fatalf("expected constant coerced to date, got %s", c.Value.TypeOID)
	}
	want := time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := c.Value.Data.(time.Time); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseTypedConstants(t *testing.T) {
	tests := []struct {
		name string
		json string
		typ  catalog.OID
		want any
	}{
		{"smallint", `{"class":"CONST","data_type":"smallint","value":12}`, catalog.Int2OID, int16(12)},
		{"inferred bigint", `{"class":"CONST","value":5000000000}`, catalog.Int8OID, int64(5000000000)},
		{"inferred bool", `{"class":"CONST","value":true}`, catalog.BoolOID, true},
		{"char", `{"class":"CONST","data_type":"\"char\"","value":"x"}`, catalog.CharOID, byte('x')},
		{"text", `{"class":"CONST","data_type":"text","value":"it's"}`, catalog.TextOID, "it's"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			c := expr.(*ConstExpression)
			if c.Value.TypeOID != tt.typ {
				t.Errorf("expected type %s, got %s", tt.typ, c.Value.TypeOID)
			}
			if c.Value.Data != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, c.Value.Data, c.Value.Data)
			}
		})
	}

	expr, err := Parse([]byte(`{"class":"CONST","data_type":"numeric(9,2)","value":9.234}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	d := expr.(*ConstExpression).Value.Data.(decimal.Decimal)
	if !d.Equal(decimal.RequireFromString("9.23")) {
		t.Errorf("expected 9.23, got %s", d)
	}

	expr, err = Parse([]byte(`{"class":"CONST","data_type":"integer","is_null":true}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c := expr.(*ConstExpression); !c.Value.IsNull || c.Value.TypeOID != catalog.Int4OID {
		t.Errorf("expected NULL integer, got %+v", c.Value)
	}
}

func TestParseNullTestAndBool(t *testing.T) {
	data := []byte(`{
		"class": "BOOL_EXPR",
		"type": "OR_EXPR",
		"args": [
			{"class": "NULL_TEST", "type": "IS_NULL", "arg": {"class": "VAR", "varno": 1, "varattno": 2, "data_type": "int"}},
			{"class": "NULL_TEST", "type": "IS_NOT_NULL", "arg_is_row": true, "arg": {"class": "VAR", "varno": 1, "varattno": 3}}
		]
	}`)
	expr, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	b, ok := expr.(*BoolExpression)
	if !ok {
		t.Fatalf("expected *BoolExpression, got %T", expr)
	}
	if b.Type() != TypeOr || len(b.Args) != 2 {
		t.Fatalf("unexpected connective %s with %d args", b.Type(), len(b.Args))
	}
	first := b.Args[0].(*NullTestExpression)
	if first.Type() != TypeIsNull || first.ArgIsRow {
		t.Errorf("unexpected first null test %+v", first)
	}
	second := b.Args[1].(*NullTestExpression)
	if second.Type() != TypeIsNotNull || !second.ArgIsRow {
		t.Errorf("unexpected second null test %+v", second)
	}
}

func TestParseKeepsUnknownConnective(t *testing.T) {
	data := []byte(`{"class":"BOOL_EXPR","type":"XOR_EXPR","args":[{"class":"CONST","value":true}]}`)
	expr, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if expr.Type() != "XOR_EXPR" {
		t.Errorf("expected XOR_EXPR, got %s", expr.Type())
	}
}

func TestParseUnsupportedClass(t *testing.T) {
	expr, err := Parse([]byte(`{"class":"WINDOW_FUNC","type":"ROW_NUMBER"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	u, ok := expr.(*UnsupportedExpression)
	if !ok {
		t.Fatalf("expected *UnsupportedExpression, got %T", expr)
	}
	if u.Class() != "WINDOW_FUNC" || u.Type() != "ROW_NUMBER" {
		t.Errorf("unexpected class/type %s/%s", u.Class(), u.Type())
	}
}

func TestParseOtherNodes(t *testing.T) {
	data := []byte(`[
		{"class":"FUNC_EXPR","name":"upper","data_type":"text","args":[{"class":"VAR","varno":1,"varattno":1,"data_type":"text"}]},
		{"class":"SUBLINK","link_type":"EXISTS"},
		{"class":"PARAM","paramid":3,"data_type":"int"}
	]`)
	clauses, err := ParseClauses(data)
	if err != nil {
		t.Fatalf("ParseClauses failed: %v", err)
	}
	if len(clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(clauses))
	}
	if f := clauses[0].(*FuncExpression); f.Name != "upper" || ResultType(f) != catalog.TextOID {
		t.Errorf("unexpected function %+v", f)
	}
	if s := clauses[1].(*SubLinkExpression); s.LinkType != "EXISTS" {
		t.Errorf("unexpected sublink %+v", s)
	}
	if p := clauses[2].(*ParamExpression); p.ID != 3 || p.TypeOID != catalog.Int4OID {
		t.Errorf("unexpected param %+v", p)
	}
}

func TestParseErrors(t *testing.T) {
	cat := catalog.NewStaticCatalog()
	tests := []struct {
		name string
		json string
		opts []ParseOption
		is   error
	}{
		{name: "invalid json", json: `{"class":`},
		{name: "smallint overflow", json: `{"class":"CONST","data_type":"smallint","value":70000}`, is: catalog.ErrOutOfRange},
		{name: "bad date", json: `{"class":"CONST","data_type":"date","value":"yesterday"}`, is: catalog.ErrInvalidInput},
		{name: "unknown type", json: `{"class":"VAR","varno":1,"varattno":1,"data_type":"money"}`},
		{name: "zero attnum", json: `{"class":"VAR","varno":1,"varattno":0}`},
		{name: "operator name without catalog", json: `{"class":"OP_EXPR","operator":"=","args":[{"class":"CONST","value":1},{"class":"CONST","value":1}]}`},
		{name: "unary operator by name", json: `{"class":"OP_EXPR","operator":"-","args":[{"class":"CONST","value":1}]}`, opts: []ParseOption{WithOperators(cat)}},
		{name: "unknown operator", json: `{"class":"OP_EXPR","operator":"@@","args":[{"class":"CONST","value":1},{"class":"CONST","value":1}]}`, opts: []ParseOption{WithOperators(cat)}},
		{name: "missing operator", json: `{"class":"OP_EXPR","args":[]}`},
		{name: "bad null test", json: `{"class":"NULL_TEST","type":"IS_UNKNOWN","arg":{"class":"CONST","value":1}}`},
		{name: "empty connective", json: `{"class":"BOOL_EXPR","type":"AND_EXPR","args":[]}`},
		{name: "bad nested argument", json: `{"class":"BOOL_EXPR","type":"AND_EXPR","args":[{"class":"CONST","data_type":"int","value":"x"}]}`, is: catalog.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json), tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}
