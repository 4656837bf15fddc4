package filter

import (
	"github.com/hugr-lab/ifx-fdw/catalog"
)

// ExpressionClass identifies the node class of a filter expression.
type ExpressionClass string

const (
	ClassVar      ExpressionClass = "VAR"
	ClassConst    ExpressionClass = "CONST"
	ClassOpExpr   ExpressionClass = "OP_EXPR"
	ClassNullTest ExpressionClass = "NULL_TEST"
	ClassBoolExpr ExpressionClass = "BOOL_EXPR"
	ClassFuncExpr ExpressionClass = "FUNC_EXPR"
	ClassSubLink  ExpressionClass = "SUBLINK"
	ClassParam    ExpressionClass = "PARAM"
)

// ExpressionType is the specific kind of a node within its class.
type ExpressionType string

const (
	TypeColumnRef     ExpressionType = "COLUMN_REF"
	TypeValueConstant ExpressionType = "VALUE_CONSTANT"
	TypeOperator      ExpressionType = "OPERATOR"
	TypeFunction      ExpressionType = "FUNCTION"
	TypeSubquery      ExpressionType = "SUBQUERY"
	TypeParameter     ExpressionType = "PARAMETER"

	// Null tests.
	TypeIsNull    ExpressionType = "IS_NULL"
	TypeIsNotNull ExpressionType = "IS_NOT_NULL"

	// Boolean connectives.
	TypeAnd ExpressionType = "AND_EXPR"
	TypeOr  ExpressionType = "OR_EXPR"
	TypeNot ExpressionType = "NOT_EXPR"
)

// Expression is the interface implemented by every filter tree node.
type Expression interface {
	// Class returns the node class.
	Class() ExpressionClass

	// Type returns the node kind within its class.
	Type() ExpressionType

	expressionMarker()
}

// BaseExpression carries the fields common to all nodes.
type BaseExpression struct {
	ExprClass ExpressionClass `json:"class"`
	ExprType  ExpressionType  `json:"type"`
}

// Class returns the expression class.
func (b *BaseExpression) Class() ExpressionClass { return b.ExprClass }

// Type returns the expression type.
func (b *BaseExpression) Type() ExpressionType { return b.ExprType }

func (b *BaseExpression) expressionMarker() {}

// Value is a typed constant.
type Value struct {
	TypeOID catalog.OID
	Typmod  int32
	IsNull  bool
	// Data holds the native value produced by the type's input function
	// (int16/int32/int64, decimal.Decimal, string, []byte, bool, byte, time.Time).
	Data any
}

// VarExpression references a column of a relation in the query's range table.
// RelIndex is the 1-based range table position, LevelsUp is non-zero for
// references to an outer query level.
type VarExpression struct {
	BaseExpression
	RelIndex   int
	AttNum     int
	LevelsUp   int
	ReturnType catalog.OID
	Typmod     int32
}

// ConstExpression is a literal.
type ConstExpression struct {
	BaseExpression
	Value Value
}

// OpExpression applies a catalog operator to its arguments.
type OpExpression struct {
	BaseExpression
	OperatorOID catalog.OID
	Args        []Expression
	ReturnType  catalog.OID
}

// NullTestExpression is "arg IS [NOT] NULL".
type NullTestExpression struct {
	BaseExpression
	Arg Expression
	// ArgIsRow is set when the tested operand is of a composite type.
	ArgIsRow bool
}

// BoolExpression is an AND/OR/NOT connective.
type BoolExpression struct {
	BaseExpression
	Args []Expression
}

// FuncExpression is a function call.
type FuncExpression struct {
	BaseExpression
	Name       string
	Args       []Expression
	ReturnType catalog.OID
}

// SubLinkExpression is a sub-select.
type SubLinkExpression struct {
	BaseExpression
	LinkType string
}

// ParamExpression is an external or executor parameter.
type ParamExpression struct {
	BaseExpression
	ID      int
	TypeOID catalog.OID
}

// UnsupportedExpression represents a node of an unknown class.
// It is preserved so that callers can recognize and skip it.
type UnsupportedExpression struct {
	BaseExpression
}

// NewVar creates a level-0 column reference.
func NewVar(relIndex, attnum int, typ catalog.OID, typmod int32) *VarExpression {
	return &VarExpression{
		BaseExpression: BaseExpression{ExprClass: ClassVar, ExprType: TypeColumnRef},
		RelIndex:       relIndex,
		AttNum:         attnum,
		ReturnType:     typ,
		Typmod:         typmod,
	}
}

// NewConst creates a non-null constant.
func NewConst(typ catalog.OID, data any) *ConstExpression {
	return &ConstExpression{
		BaseExpression: BaseExpression{ExprClass: ClassConst, ExprType: TypeValueConstant},
		Value:          Value{TypeOID: typ, Typmod: -1, Data: data},
	}
}

// NewNullConst creates a typed NULL constant.
func NewNullConst(typ catalog.OID) *ConstExpression {
	return &ConstExpression{
		BaseExpression: BaseExpression{ExprClass: ClassConst, ExprType: TypeValueConstant},
		Value:          Value{TypeOID: typ, Typmod: -1, IsNull: true},
	}
}

// NewOp creates an operator application.
func NewOp(op *catalog.Operator, args ...Expression) *OpExpression {
	return &OpExpression{
		BaseExpression: BaseExpression{ExprClass: ClassOpExpr, ExprType: TypeOperator},
		OperatorOID:    op.OID,
		Args:           args,
		ReturnType:     op.Result,
	}
}

// NewNullTest creates "arg IS NULL" or, when isNull is false, "arg IS NOT NULL".
func NewNullTest(arg Expression, isNull bool) *NullTestExpression {
	typ := TypeIsNotNull
	if isNull {
		typ = TypeIsNull
	}
	return &NullTestExpression{
		BaseExpression: BaseExpression{ExprClass: ClassNullTest, ExprType: typ},
		Arg:            arg,
	}
}

// NewBool creates a connective of the given type.
func NewBool(typ ExpressionType, args ...Expression) *BoolExpression {
	return &BoolExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoolExpr, ExprType: typ},
		Args:           args,
	}
}

// And is shorthand for NewBool(TypeAnd, args...).
func And(args ...Expression) *BoolExpression { return NewBool(TypeAnd, args...) }

// Or is shorthand for NewBool(TypeOr, args...).
func Or(args ...Expression) *BoolExpression { return NewBool(TypeOr, args...) }

// Not is shorthand for NewBool(TypeNot, arg).
func Not(arg Expression) *BoolExpression { return NewBool(TypeNot, arg) }

// NewFunc creates a function call.
func NewFunc(name string, result catalog.OID, args ...Expression) *FuncExpression {
	return &FuncExpression{
		BaseExpression: BaseExpression{ExprClass: ClassFuncExpr, ExprType: TypeFunction},
		Name:           name,
		Args:           args,
		ReturnType:     result,
	}
}

// ResultType returns the type an expression evaluates to, or InvalidOID if
// it cannot be determined without planning.
func ResultType(e Expression) catalog.OID {
	switch n := e.(type) {
	case *VarExpression:
		return n.ReturnType
	case *ConstExpression:
		return n.Value.TypeOID
	case *OpExpression:
		return n.ReturnType
	case *FuncExpression:
		return n.ReturnType
	case *ParamExpression:
		return n.TypeOID
	case *NullTestExpression, *BoolExpression:
		return catalog.BoolOID
	default:
		return catalog.InvalidOID
	}
}
