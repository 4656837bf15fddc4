package conv

import (
	"fmt"
	"math"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

func (c *Converter) incompatible(col *Column, attr *ifx.AttrDef) error {
	return &IncompatibleTypeError{Column: col.Name, Local: col.TypeOID, Typmod: col.Typmod, Remote: attr.Kind}
}

// narrow checks that an integer value fits in [lo, hi].
func (c *Converter) narrow(col *Column, attr *ifx.AttrDef, value any, lo, hi int64) (int64, error) {
	v, ok := catalog.ToInt64(value)
	if !ok {
		return 0, c.incompatible(col, attr)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d does not fit informix %s", ErrOutOfRange, v, attr.Kind)
	}
	return v, nil
}

// text renders value through the local type's output function.
func (c *Converter) text(col *Column, value any) (string, error) {
	out, err := c.types.OutputFunction(col.TypeOID)
	if err != nil {
		return "", err
	}
	return out(value)
}

func (c *Converter) toRemote(stmt RemoteWriter, col *Column, attr *ifx.AttrDef, value any) error {
	pos := col.RemotePos

	switch k := attr.Kind; {
	case k == ifx.KindSmallInt:
		v, err := c.narrow(col, attr, value, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		return stmt.SetInt2(pos, int16(v))

	case k == ifx.KindInteger, k == ifx.KindSerial:
		v, err := c.narrow(col, attr, value, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		return stmt.SetInteger(pos, int32(v))

	case k.IsWideInteger():
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		if k == ifx.KindBigInt {
			return stmt.SetBigInt(pos, s)
		}
		return stmt.SetInt8(pos, s)

	case k == ifx.KindDecimal:
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		return stmt.SetDecimal(pos, s)

	case k == ifx.KindDate:
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		return stmt.SetDate(pos, s)

	case k == ifx.KindDateTime:
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		return stmt.SetDateTime(pos, s)

	case k == ifx.KindByte:
		if b, ok := value.([]byte); ok {
			return stmt.SetBytes(pos, b)
		}
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		return stmt.SetBytes(pos, []byte(s))

	case k.IsCharacter(), k == ifx.KindText:
		if b, ok := value.([]byte); ok && col.TypeOID == catalog.ByteaOID {
			return stmt.SetText(pos, string(b))
		}
		s, err := c.text(col, value)
		if err != nil {
			return err
		}
		return stmt.SetText(pos, s)

	case k == ifx.KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return c.incompatible(col, attr)
		}
		return stmt.SetBool(pos, b)
	}
	return c.incompatible(col, attr)
}
