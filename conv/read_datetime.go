package conv

import (
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

// readDate fetches a DATE (or character) value as a formatted date string and
// parses it with the date input function, without typmod.
func (c *Converter) readDate(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	if attr.Kind != ifx.KindDate && !attr.Kind.IsCharacter() {
		return Invalid(), nil
	}
	text, ok := fetchText(DateBufferLen, func(buf []byte) (int, bool) {
		return stmt.DateAsString(attr.Ordinal, buf)
	})
	if !ok {
		return Invalid(), nil
	}

	if col.TypeOID != catalog.DateOID {
		// Character target fed from a DATE column.
		return c.parse(catalog.DateOID, text, -1, col)
	}
	return c.parse(col.TypeOID, text, -1, nil)
}

// readTimestamp fetches a DATETIME (or character) value as an ANSI datetime
// string and parses it with the timestamp input function.
func (c *Converter) readTimestamp(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	if attr.Kind != ifx.KindDateTime && !attr.Kind.IsCharacter() {
		return Invalid(), nil
	}
	text, ok := fetchText(DateTimeBufferLen, func(buf []byte) (int, bool) {
		return stmt.DateTimeAsString(attr.Ordinal, buf)
	})
	if !ok {
		return Invalid(), nil
	}

	if col.TypeOID != catalog.TimestampOID && col.TypeOID != catalog.TimestampTZOID {
		return c.parse(catalog.TimestampOID, text, -1, col)
	}
	return c.parse(col.TypeOID, text, -1, nil)
}

// parse runs the input function of typ. When target is set, the parsed
// value is rendered again through typ's output function and re-read by the
// target's input function, so character targets get canonical text with
// their typmod applied.
func (c *Converter) parse(typ catalog.OID, text string, typmod int32, target *Column) (Outcome, error) {
	in, err := c.types.InputFunction(typ)
	if err != nil {
		return Outcome{}, err
	}
	v, err := in(text, typmod)
	if err != nil {
		return Outcome{}, err
	}
	if target == nil {
		return Converted(v), nil
	}

	out, err := c.types.OutputFunction(typ)
	if err != nil {
		return Outcome{}, err
	}
	canonical, err := out(v)
	if err != nil {
		return Outcome{}, err
	}
	targetIn, err := c.types.InputFunction(target.TypeOID)
	if err != nil {
		return Outcome{}, err
	}
	v, err = targetIn(canonical, target.Typmod)
	if err != nil {
		return Outcome{}, err
	}
	return Converted(v), nil
}
