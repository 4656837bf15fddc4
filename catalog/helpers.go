package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// maxDecimal128Precision is the widest numeric carried as Decimal128.
const maxDecimal128Precision = 38

// ArrowType maps a host type to the Arrow type used on the wire.
// Unconstrained numerics travel as strings to keep their exact scale.
func ArrowType(oid OID, typmod int32) (arrow.DataType, error) {
	switch oid {
	case BoolOID:
		return arrow.FixedWidthTypes.Boolean, nil
	case ByteaOID:
		return arrow.BinaryTypes.Binary, nil
	case CharOID:
		return arrow.PrimitiveTypes.Uint8, nil
	case Int2OID:
		return arrow.PrimitiveTypes.Int16, nil
	case Int4OID:
		return arrow.PrimitiveTypes.Int32, nil
	case Int8OID:
		return arrow.PrimitiveTypes.Int64, nil
	case TextOID, VarcharOID, BPCharOID:
		return arrow.BinaryTypes.String, nil
	case DateOID:
		return arrow.FixedWidthTypes.Date32, nil
	case TimestampOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	case TimestampTZOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	case NumericOID:
		p, s, ok := NumericPrecisionScale(typmod)
		if !ok || p > maxDecimal128Precision {
			return arrow.BinaryTypes.String, nil
		}
		return &arrow.Decimal128Type{Precision: int32(p), Scale: int32(s)}, nil
	}
	return nil, fmt.Errorf("%w: no Arrow mapping for type %d", ErrTypeLookup, oid)
}
