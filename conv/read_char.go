package conv

import (
	"bytes"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

// fastPath reports targets that take the value as is: unconstrained text,
// varchar without a declared length and bytea.
func fastPath(col *Column) bool {
	switch col.TypeOID {
	case catalog.TextOID, catalog.ByteaOID:
		return true
	case catalog.VarcharOID:
		return col.Typmod == -1
	}
	return false
}

// readCharacter converts inline character values and TEXT/BYTE large
// objects to text, varchar, bpchar or bytea targets.
func (c *Converter) readCharacter(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	var data []byte
	switch {
	case attr.Kind.IsLargeObject():
		b, ok := stmt.LocatorBytes(attr.Ordinal)
		if !ok {
			return Invalid(), nil
		}
		// The locator buffer is reused by the next fetch.
		data = bytes.Clone(b)
		if data == nil {
			data = []byte{}
		}
	case attr.Kind.IsCharacter():
		s, ok := stmt.Text(attr.Ordinal)
		if !ok {
			return Invalid(), nil
		}
		if col.TypeOID == catalog.ByteaOID {
			return Converted([]byte(s)), nil
		}
		if fastPath(col) {
			return Converted(s), nil
		}
		return c.parse(col.TypeOID, s, col.Typmod, nil)
	default:
		return Invalid(), nil
	}

	if col.TypeOID == catalog.ByteaOID {
		return Converted(data), nil
	}
	if fastPath(col) {
		return Converted(string(data)), nil
	}
	return c.parse(col.TypeOID, string(data), col.Typmod, nil)
}
