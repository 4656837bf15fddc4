package conv

import (
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

// readBool converts BOOLEAN values. Boolean and "char" targets take the value
// directly ("char" gets the remote 't'/'f' representation); character targets
// go through the bool cast.
func (c *Converter) readBool(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	if attr.Kind != ifx.KindBoolean {
		return Invalid(), nil
	}
	v, ok := stmt.Bool(attr.Ordinal)
	if !ok {
		return Invalid(), nil
	}

	switch col.TypeOID {
	case catalog.BoolOID:
		return Converted(v), nil
	case catalog.CharOID:
		if v {
			return Converted(byte('t')), nil
		}
		return Converted(byte('f')), nil
	case catalog.TextOID, catalog.VarcharOID, catalog.BPCharOID:
		cast, err := c.types.CastFunction(catalog.BoolOID, col.TypeOID)
		if err != nil {
			return Outcome{}, err
		}
		out, err := cast(v, col.Typmod)
		if err != nil {
			return Outcome{}, err
		}
		return Converted(out), nil
	}
	return Invalid(), nil
}
