package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/shopspring/decimal"
)

// Informix DATETIME literals carry at most five fractional digits.
const informixDateTimeLayout = "2006-01-02 15:04:05.00000"

// InformixEncoder renders expressions scoped to a single relation as
// Informix SQL.
type InformixEncoder struct {
	rel  *Relation
	ops  catalog.OperatorCatalog
	opts EncoderOptions
}

var _ Encoder = (*InformixEncoder)(nil)

// NewInformixEncoder creates an encoder for rel. Operator names are looked
// up in ops.
func NewInformixEncoder(rel *Relation, ops catalog.OperatorCatalog, opts *EncoderOptions) *InformixEncoder {
	e := &InformixEncoder{rel: rel, ops: ops}
	if opts != nil {
		e.opts = *opts
	}
	if e.opts.LiteralStyle == "" {
		e.opts.LiteralStyle = LiteralInformix
	}
	return e
}

// Encode implements Encoder.
func (e *InformixEncoder) Encode(expr Expression) (string, error) {
	switch n := expr.(type) {
	case *VarExpression:
		return e.encodeVar(n)
	case *ConstExpression:
		return e.encodeConst(n)
	case *OpExpression:
		return e.encodeOp(n)
	case *NullTestExpression:
		return e.encodeNullTest(n)
	case *BoolExpression:
		return e.encodeBool(n)
	case nil:
		return "", unsupported("nil expression")
	default:
		return "", unsupported("%s expression", expr.Class())
	}
}

func (e *InformixEncoder) encodeVar(v *VarExpression) (string, error) {
	if v.RelIndex != 1 || v.LevelsUp != 0 {
		return "", unsupported("column reference %d.%d outside the relation frame", v.RelIndex, v.AttNum)
	}
	name, ok := e.rel.Columns[v.AttNum]
	if !ok {
		return "", unsupported("relation %q has no attribute %d", e.rel.Name, v.AttNum)
	}
	if expr, ok := e.opts.ColumnExpressions[name]; ok {
		return "(" + expr + ")", nil
	}
	if mapped, ok := e.opts.ColumnMapping[name]; ok {
		name = mapped
	}
	return quoteIdentifier(name), nil
}

func (e *InformixEncoder) encodeConst(c *ConstExpression) (string, error) {
	v := c.Value
	if v.IsNull {
		return "NULL", nil
	}
	ansi := e.opts.LiteralStyle == LiteralANSI

	switch v.TypeOID {
	case catalog.Int2OID, catalog.Int4OID, catalog.Int8OID:
		n, ok := catalog.ToInt64(v.Data)
		if !ok {
			return "", unsupported("%T constant of type %s", v.Data, catalog.TypeName(v.TypeOID, v.Typmod))
		}
		return strconv.FormatInt(n, 10), nil

	case catalog.NumericOID:
		d, ok := v.Data.(decimal.Decimal)
		if !ok {
			return "", unsupported("%T numeric constant", v.Data)
		}
		return d.String(), nil

	case catalog.TextOID, catalog.VarcharOID, catalog.BPCharOID:
		s, ok := v.Data.(string)
		if !ok {
			return "", unsupported("%T character constant", v.Data)
		}
		return quoteLiteral(s), nil

	case catalog.CharOID:
		b, ok := v.Data.(byte)
		if !ok {
			return "", unsupported("%T \"char\" constant", v.Data)
		}
		return quoteLiteral(string([]byte{b})), nil

	case catalog.BoolOID:
		b, ok := v.Data.(bool)
		if !ok {
			return "", unsupported("%T boolean constant", v.Data)
		}
		switch {
		case ansi && b:
			return "TRUE", nil
		case ansi:
			return "FALSE", nil
		case b:
			return "'t'", nil
		default:
			return "'f'", nil
		}

	case catalog.DateOID:
		t, ok := v.Data.(time.Time)
		if !ok {
			return "", unsupported("%T date constant", v.Data)
		}
		if ansi {
			return "DATE " + quoteLiteral(t.Format(catalog.DateLayout)), nil
		}
		return fmt.Sprintf("MDY(%d,%d,%d)", int(t.Month()), t.Day(), t.Year()), nil

	case catalog.TimestampOID, catalog.TimestampTZOID:
		t, ok := v.Data.(time.Time)
		if !ok {
			return "", unsupported("%T timestamp constant", v.Data)
		}
		if v.TypeOID == catalog.TimestampTZOID {
			t = t.UTC()
		}
		if ansi {
			if v.TypeOID == catalog.TimestampTZOID {
				return "TIMESTAMPTZ " + quoteLiteral(t.Format(catalog.TimestampTZLayout)), nil
			}
			return "TIMESTAMP " + quoteLiteral(t.Format(catalog.TimestampLayout)), nil
		}
		// A truncated bound would let the remote side drop matching rows.
		if t.Nanosecond()%10000 != 0 {
			return "", unsupported("timestamp %s exceeds DATETIME fraction precision", t.Format(time.RFC3339Nano))
		}
		return "DATETIME(" + t.Format(informixDateTimeLayout) + ") YEAR TO FRACTION(5)", nil

	default:
		return "", unsupported("constant of type %s", catalog.TypeName(v.TypeOID, v.Typmod))
	}
}

// operatorSQL maps a catalog operator name to its remote spelling.
func (e *InformixEncoder) operatorSQL(name string) (string, bool) {
	switch name {
	case "=", "<>", "<", ">", "<=", ">=", "+", "-", "*", "/", "||":
		return name, true
	case "~~":
		return "LIKE", true
	case "!~~":
		return "NOT LIKE", true
	case "~~*":
		return "ILIKE", e.opts.LiteralStyle == LiteralANSI
	case "!~~*":
		return "NOT ILIKE", e.opts.LiteralStyle == LiteralANSI
	default:
		return "", false
	}
}

func (e *InformixEncoder) encodeOp(o *OpExpression) (string, error) {
	if e.ops == nil {
		return "", unsupported("no operator catalog")
	}
	op, err := e.ops.Operator(o.OperatorOID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedExpression, err)
	}
	sql, ok := e.operatorSQL(op.Name)
	if !ok {
		return "", unsupported("operator %q", op.Name)
	}

	args := make([]string, len(o.Args))
	for i, a := range o.Args {
		s, err := e.Encode(a)
		if err != nil {
			return "", err
		}
		if _, nested := a.(*OpExpression); nested {
			s = "(" + s + ")"
		}
		args[i] = s
	}

	switch len(args) {
	case 1:
		return sql + args[0], nil
	case 2:
		return args[0] + " " + sql + " " + args[1], nil
	default:
		return "", unsupported("operator %q with %d arguments", op.Name, len(args))
	}
}

func (e *InformixEncoder) encodeNullTest(n *NullTestExpression) (string, error) {
	if n.ArgIsRow {
		return "", unsupported("null test on a row value")
	}
	arg, err := e.Encode(n.Arg)
	if err != nil {
		return "", err
	}
	switch n.Type() {
	case TypeIsNull:
		return arg + " IS NULL", nil
	case TypeIsNotNull:
		return arg + " IS NOT NULL", nil
	default:
		return "", unsupported("null test type %q", n.Type())
	}
}

func (e *InformixEncoder) encodeBool(b *BoolExpression) (string, error) {
	parts := make([]string, len(b.Args))
	for i, a := range b.Args {
		s, err := e.Encode(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}

	switch b.Type() {
	case TypeAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case TypeOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case TypeNot:
		if len(parts) != 1 {
			return "", unsupported("NOT with %d arguments", len(parts))
		}
		return "(NOT " + parts[0] + ")", nil
	default:
		return "", unsupported("boolean expression type %q", b.Type())
	}
}
