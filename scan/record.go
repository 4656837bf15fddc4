package scan

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/shopspring/decimal"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

func unexpectedValue(b any, v any) error {
	return fmt.Errorf("cannot append %T to %T", v, b)
}

// appendValue appends a converted host value to the column builder.
func appendValue(b array.Builder, v any) error {
	switch b := b.(type) {
	case *array.Int16Builder:
		n, ok := v.(int16)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(n)
	case *array.Int32Builder:
		n, ok := v.(int32)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(n)
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(n)
	case *array.Uint8Builder:
		n, ok := v.(byte)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(n)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(x)
	case *array.StringBuilder:
		switch x := v.(type) {
		case string:
			b.Append(x)
		case decimal.Decimal:
			b.Append(x.String())
		default:
			return unexpectedValue(b, v)
		}
	case *array.BinaryBuilder:
		x, ok := v.([]byte)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(x)
	case *array.Decimal128Builder:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return unexpectedValue(b, v)
		}
		scale := b.Type().(*arrow.Decimal128Type).Scale
		b.Append(decimal128.FromBigInt(d.Shift(scale).BigInt()))
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return unexpectedValue(b, v)
		}
		b.Append(arrow.Timestamp(t.UnixMicro()))
	default:
		return unexpectedValue(b, v)
	}
	return nil
}

// arrayValue reads row i of arr as the host value of a column of type typ.
// isNull reports SQL NULL.
func arrayValue(arr arrow.Array, i int, typ catalog.OID) (v any, isNull bool, err error) {
	if arr.IsNull(i) {
		return nil, true, nil
	}
	switch a := arr.(type) {
	case *array.Int16:
		return a.Value(i), false, nil
	case *array.Int32:
		return a.Value(i), false, nil
	case *array.Int64:
		return a.Value(i), false, nil
	case *array.Uint8:
		return a.Value(i), false, nil
	case *array.Boolean:
		return a.Value(i), false, nil
	case *array.String:
		if typ == catalog.NumericOID {
			d, err := decimal.NewFromString(a.Value(i))
			return d, false, err
		}
		return a.Value(i), false, nil
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...), false, nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		n := a.Value(i)
		return decimal.NewFromBigInt(n.BigInt(), -scale), false, nil
	case *array.Date32:
		return a.Value(i).ToTime().UTC(), false, nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC(), false, nil
	}
	return nil, false, fmt.Errorf("unsupported Arrow type %s", arr.DataType())
}
