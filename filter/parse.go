package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

// OperatorResolver resolves operators by OID or by name and operand types.
// *catalog.StaticCatalog implements it.
type OperatorResolver interface {
	catalog.OperatorCatalog
	OperatorByName(name string, left, right catalog.OID) (*catalog.Operator, error)
}

// ParseOption configures Parse and ParseClauses.
type ParseOption func(*parser)

// WithOperators sets the resolver used for operators given by name.
// Without it, operator nodes must carry an "opno".
func WithOperators(ops OperatorResolver) ParseOption {
	return func(p *parser) { p.ops = ops }
}

// WithTypes sets the type catalog whose input functions decode constants.
func WithTypes(types catalog.TypeCatalog) ParseOption {
	return func(p *parser) { p.types = types }
}

var builtinCatalog = sync.OnceValue(func() *catalog.StaticCatalog {
	return catalog.NewStaticCatalog()
})

type parser struct {
	ops   OperatorResolver
	types catalog.TypeCatalog
}

func newParser(opts []ParseOption) *parser {
	p := &parser{types: builtinCatalog()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses a JSON filter tree.
//
// Error conditions:
//   - Invalid JSON syntax
//   - Constants that the type's input function rejects
//   - Operators that cannot be resolved
//
// Nodes of an unknown class are returned as UnsupportedExpression.
func Parse(data []byte, opts ...ParseOption) (Expression, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	expr, err := newParser(opts).parseExpression(data)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return expr, nil
}

// ParseClauses parses a JSON array of filter trees. The clauses are
// implicitly AND-ed together.
func ParseClauses(data []byte, opts ...ParseOption) ([]Expression, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}
	p := newParser(opts)
	exprs := make([]Expression, 0, len(raw))
	for i, r := range raw {
		expr, err := p.parseExpression(r)
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing clause %d: %w", i, err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// rawExpression is used for two-phase parsing to determine expression class.
type rawExpression struct {
	Class string `json:"class"`
	Type  string `json:"type"`
}

func (p *parser) parseExpression(data json.RawMessage) (Expression, error) {
	var raw rawExpression
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch ExpressionClass(raw.Class) {
	case ClassVar:
		return p.parseVar(data)
	case ClassConst:
		return p.parseConst(data)
	case ClassOpExpr:
		return p.parseOp(data)
	case ClassNullTest:
		return p.parseNullTest(data)
	case ClassBoolExpr:
		return p.parseBool(data)
	case ClassFuncExpr:
		return p.parseFunc(data)
	case ClassSubLink:
		return p.parseSubLink(data)
	case ClassParam:
		return p.parseParam(data)
	default:
		return &UnsupportedExpression{
			BaseExpression: BaseExpression{
				ExprClass: ExpressionClass(raw.Class),
				ExprType:  ExpressionType(raw.Type),
			},
		}, nil
	}
}

func (p *parser) parseArgs(raw []json.RawMessage) ([]Expression, error) {
	args := make([]Expression, 0, len(raw))
	for i, r := range raw {
		arg, err := p.parseExpression(r)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %d: %w", i, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

func parseDataType(name string) (catalog.OID, int32, error) {
	if name == "" {
		return catalog.InvalidOID, -1, nil
	}
	return catalog.ParseTypeName(name)
}

type rawVar struct {
	RelIndex int    `json:"varno"`
	AttNum   int    `json:"varattno"`
	LevelsUp int    `json:"varlevelsup"`
	DataType string `json:"data_type"`
}

func (p *parser) parseVar(data json.RawMessage) (*VarExpression, error) {
	var raw rawVar
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid column reference: %w", err)
	}
	if raw.AttNum <= 0 {
		return nil, fmt.Errorf("invalid column reference: attribute number %d", raw.AttNum)
	}
	typ, typmod, err := parseDataType(raw.DataType)
	if err != nil {
		return nil, fmt.Errorf("invalid column reference: %w", err)
	}
	v := NewVar(raw.RelIndex, raw.AttNum, typ, typmod)
	v.LevelsUp = raw.LevelsUp
	return v, nil
}

type rawConst struct {
	DataType string          `json:"data_type"`
	IsNull   bool            `json:"is_null"`
	Value    json.RawMessage `json:"value"`
}

func (p *parser) parseConst(data json.RawMessage) (*ConstExpression, error) {
	var raw rawConst
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid constant: %w", err)
	}
	typ, typmod, err := parseDataType(raw.DataType)
	if err != nil {
		return nil, fmt.Errorf("invalid constant: %w", err)
	}

	isNull := raw.IsNull || len(raw.Value) == 0 || string(raw.Value) == "null"
	if isNull {
		if typ == catalog.InvalidOID {
			typ = catalog.TextOID
		}
		c := NewNullConst(typ)
		c.Value.Typmod = typmod
		return c, nil
	}

	text, inferred, err := constText(raw.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid constant: %w", err)
	}
	if typ == catalog.InvalidOID {
		typ = inferred
	}
	v, err := p.decode(typ, typmod, text)
	if err != nil {
		return nil, fmt.Errorf("invalid constant: %w", err)
	}
	c := NewConst(typ, v)
	c.Value.Typmod = typmod
	return c, nil
}

// constText returns the textual form of a JSON scalar together with the
// type it implies when no data_type is given.
func constText(raw json.RawMessage) (string, catalog.OID, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", catalog.InvalidOID, err
	}
	switch v := v.(type) {
	case string:
		return v, catalog.TextOID, nil
	case bool:
		return strconv.FormatBool(v), catalog.BoolOID, nil
	case json.Number:
		s := v.String()
		if strings.ContainsAny(s, ".eE") {
			return s, catalog.NumericOID, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		switch {
		case err != nil:
			return s, catalog.NumericOID, nil
		case n >= math.MinInt32 && n <= math.MaxInt32:
			return s, catalog.Int4OID, nil
		default:
			return s, catalog.Int8OID, nil
		}
	default:
		return "", catalog.InvalidOID, fmt.Errorf("unsupported constant value %s", string(raw))
	}
}

func (p *parser) decode(typ catalog.OID, typmod int32, text string) (any, error) {
	in, err := p.types.InputFunction(typ)
	if err != nil {
		return nil, err
	}
	return in(text, typmod)
}

type rawOp struct {
	OperatorOID uint32            `json:"opno"`
	Operator    string            `json:"operator"`
	Args        []json.RawMessage `json:"args"`
}

func (p *parser) parseOp(data json.RawMessage) (*OpExpression, error) {
	var raw rawOp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid operator expression: %w", err)
	}
	args, err := p.parseArgs(raw.Args)
	if err != nil {
		return nil, err
	}

	if raw.OperatorOID != 0 {
		op := &OpExpression{
			BaseExpression: BaseExpression{ExprClass: ClassOpExpr, ExprType: TypeOperator},
			OperatorOID:    catalog.OID(raw.OperatorOID),
			Args:           args,
			ReturnType:     catalog.BoolOID,
		}
		if p.ops != nil {
			if o, err := p.ops.Operator(op.OperatorOID); err == nil {
				op.ReturnType = o.Result
			}
		}
		return op, nil
	}

	if raw.Operator == "" {
		return nil, errors.New("invalid operator expression: missing opno or operator")
	}
	if p.ops == nil {
		return nil, fmt.Errorf("invalid operator expression: cannot resolve operator %q without an operator catalog", raw.Operator)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("invalid operator expression: operator %q expects 2 arguments, got %d", raw.Operator, len(args))
	}
	op, err := p.resolveOperator(raw.Operator, args)
	if err != nil {
		return nil, fmt.Errorf("invalid operator expression: %w", err)
	}
	return NewOp(op, args...), nil
}

// resolveOperator finds an operator for the argument types. When there is no
// exact match and one side is a constant, the constant is coerced to the
// other side's type, the way untyped literals are resolved in SQL.
func (p *parser) resolveOperator(name string, args []Expression) (*catalog.Operator, error) {
	left, right := ResultType(args[0]), ResultType(args[1])
	op, err := p.ops.OperatorByName(name, left, right)
	if err == nil {
		return op, nil
	}
	for i, other := range []catalog.OID{right, left} {
		c, ok := args[i].(*ConstExpression)
		if !ok || other == catalog.InvalidOID || other == c.Value.TypeOID {
			continue
		}
		coerced, cerr := p.coerce(c, other)
		if cerr != nil {
			continue
		}
		l, r := left, right
		if i == 0 {
			l = other
		} else {
			r = other
		}
		if op, lerr := p.ops.OperatorByName(name, l, r); lerr == nil {
			args[i] = coerced
			return op, nil
		}
	}
	return nil, err
}

func (p *parser) coerce(c *ConstExpression, typ catalog.OID) (*ConstExpression, error) {
	if c.Value.IsNull {
		return NewNullConst(typ), nil
	}
	out, err := p.types.OutputFunction(c.Value.TypeOID)
	if err != nil {
		return nil, err
	}
	text, err := out(c.Value.Data)
	if err != nil {
		return nil, err
	}
	v, err := p.decode(typ, -1, text)
	if err != nil {
		return nil, err
	}
	return NewConst(typ, v), nil
}

type rawNullTest struct {
	Type     string          `json:"type"`
	Arg      json.RawMessage `json:"arg"`
	ArgIsRow bool            `json:"arg_is_row"`
}

func (p *parser) parseNullTest(data json.RawMessage) (*NullTestExpression, error) {
	var raw rawNullTest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid null test: %w", err)
	}
	var isNull bool
	switch ExpressionType(raw.Type) {
	case TypeIsNull:
		isNull = true
	case TypeIsNotNull:
	default:
		return nil, fmt.Errorf("invalid null test type %q", raw.Type)
	}
	arg, err := p.parseExpression(raw.Arg)
	if err != nil {
		return nil, fmt.Errorf("invalid null test operand: %w", err)
	}
	nt := NewNullTest(arg, isNull)
	nt.ArgIsRow = raw.ArgIsRow
	return nt, nil
}

type rawBool struct {
	Type string            `json:"type"`
	Args []json.RawMessage `json:"args"`
}

// parseBool keeps the connective type as given. Validating it is left to the
// consumers of the tree.
func (p *parser) parseBool(data json.RawMessage) (*BoolExpression, error) {
	var raw rawBool
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid boolean expression: %w", err)
	}
	if len(raw.Args) == 0 {
		return nil, errors.New("invalid boolean expression: no arguments")
	}
	args, err := p.parseArgs(raw.Args)
	if err != nil {
		return nil, err
	}
	return NewBool(ExpressionType(raw.Type), args...), nil
}

type rawFunc struct {
	Name     string            `json:"name"`
	DataType string            `json:"data_type"`
	Args     []json.RawMessage `json:"args"`
}

func (p *parser) parseFunc(data json.RawMessage) (*FuncExpression, error) {
	var raw rawFunc
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid function expression: %w", err)
	}
	typ, _, err := parseDataType(raw.DataType)
	if err != nil {
		return nil, fmt.Errorf("invalid function expression: %w", err)
	}
	args, err := p.parseArgs(raw.Args)
	if err != nil {
		return nil, err
	}
	return NewFunc(raw.Name, typ, args...), nil
}

type rawSubLink struct {
	LinkType string `json:"link_type"`
}

func (p *parser) parseSubLink(data json.RawMessage) (*SubLinkExpression, error) {
	var raw rawSubLink
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid sublink: %w", err)
	}
	return &SubLinkExpression{
		BaseExpression: BaseExpression{ExprClass: ClassSubLink, ExprType: TypeSubquery},
		LinkType:       raw.LinkType,
	}, nil
}

type rawParam struct {
	ID       int    `json:"paramid"`
	DataType string `json:"data_type"`
}

func (p *parser) parseParam(data json.RawMessage) (*ParamExpression, error) {
	var raw rawParam
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid parameter: %w", err)
	}
	typ, _, err := parseDataType(raw.DataType)
	if err != nil {
		return nil, fmt.Errorf("invalid parameter: %w", err)
	}
	return &ParamExpression{
		BaseExpression: BaseExpression{ExprClass: ClassParam, ExprType: TypeParameter},
		ID:             raw.ID,
		TypeOID:        typ,
	}, nil
}
