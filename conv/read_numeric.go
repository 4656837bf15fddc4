package conv

import (
	"bytes"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

// readDecimal fetches a DECIMAL as text and parses it with the numeric input
// function using the column typmod. The remote client formats with the radix
// of its numeric locale; the text is normalized to '.' first.
func (c *Converter) readDecimal(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	if attr.Kind != ifx.KindDecimal {
		return Invalid(), nil
	}
	text, ok := fetchText(DecimalBufferLen, func(buf []byte) (int, bool) {
		n, ok := stmt.DecimalAsString(attr.Ordinal, buf)
		if ok {
			if i := bytes.IndexByte(buf[:n], ','); i >= 0 {
				buf[i] = '.'
			}
		}
		return n, ok
	})
	if !ok {
		return Invalid(), nil
	}
	return c.parse(col.TypeOID, text, col.Typmod, nil)
}

func (c *Converter) readInt2(stmt RemoteReader, attr *ifx.AttrDef) (Outcome, error) {
	if attr.Kind != ifx.KindSmallInt {
		return Invalid(), nil
	}
	v, ok := stmt.Int2(attr.Ordinal)
	if !ok {
		return Invalid(), nil
	}
	return Converted(v), nil
}

func (c *Converter) readInt4(stmt RemoteReader, attr *ifx.AttrDef) (Outcome, error) {
	if !attr.Kind.IsNarrowInteger() {
		return Invalid(), nil
	}
	v, ok := stmt.Int4(attr.Ordinal)
	if !ok {
		return Invalid(), nil
	}
	return Converted(v), nil
}

// readInteger serves bigint and character targets. Wide remote integers are
// staged as text and parsed by the target's input function; narrow remote
// integers are fetched directly and widened (bigint) or cast (character).
func (c *Converter) readInteger(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	switch {
	case attr.Kind.IsWideInteger():
		fetch := stmt.Int8AsString
		if attr.Kind == ifx.KindBigInt {
			fetch = stmt.BigIntAsString
		}
		text, ok := fetchText(Int8BufferLen, func(buf []byte) (int, bool) {
			return fetch(attr.Ordinal, buf)
		})
		if !ok {
			return Invalid(), nil
		}
		return c.parse(col.TypeOID, text, col.Typmod, nil)

	case attr.Kind.IsNarrowInteger():
		var (
			source catalog.OID
			value  any
		)
		if attr.Kind == ifx.KindSmallInt {
			v, ok := stmt.Int2(attr.Ordinal)
			if !ok {
				return Invalid(), nil
			}
			source, value = catalog.Int2OID, v
		} else {
			v, ok := stmt.Int4(attr.Ordinal)
			if !ok {
				return Invalid(), nil
			}
			source, value = catalog.Int4OID, v
		}
		if col.TypeOID == catalog.Int8OID {
			v, _ := catalog.ToInt64(value)
			return Converted(v), nil
		}
		cast, err := c.types.CastFunction(source, col.TypeOID)
		if err != nil {
			return Outcome{}, err
		}
		v, err := cast(value, col.Typmod)
		if err != nil {
			return Outcome{}, err
		}
		return Converted(v), nil
	}
	return Invalid(), nil
}
