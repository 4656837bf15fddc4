// Package ifx models the remote Informix client: the fixed set of remote
// primitive kinds, the per-statement attribute descriptors and indicators,
// and the statement handle the conversion matrix reads from and writes to.
package ifx

import (
	"strings"
)

// Kind is a remote primitive type. Values are the Informix SQL type codes.
type Kind int16

const (
	KindChar     Kind = 0
	KindSmallInt Kind = 1
	KindInteger  Kind = 2
	KindDecimal  Kind = 5
	KindSerial   Kind = 6
	KindDate     Kind = 7
	KindDateTime Kind = 10
	KindByte     Kind = 11
	KindText     Kind = 12
	KindVarChar  Kind = 13
	KindNChar    Kind = 15
	KindNVarChar Kind = 16
	KindInt8     Kind = 17
	KindSerial8  Kind = 18
	KindLVarChar Kind = 43
	KindBoolean  Kind = 45
	KindBigInt   Kind = 52

	// KindUnknown marks a remote column this client cannot map.
	KindUnknown Kind = -1
)

var kindNames = map[Kind]string{
	KindChar:     "CHAR",
	KindSmallInt: "SMALLINT",
	KindInteger:  "INTEGER",
	KindDecimal:  "DECIMAL",
	KindSerial:   "SERIAL",
	KindDate:     "DATE",
	KindDateTime: "DATETIME",
	KindByte:     "BYTE",
	KindText:     "TEXT",
	KindVarChar:  "VARCHAR",
	KindNChar:    "NCHAR",
	KindNVarChar: "NVARCHAR",
	KindInt8:     "INT8",
	KindSerial8:  "SERIAL8",
	KindLVarChar: "LVARCHAR",
	KindBoolean:  "BOOLEAN",
	KindBigInt:   "BIGINT",
}

// Kinds lists every known remote kind.
func Kinds() []Kind {
	return []Kind{
		KindChar, KindSmallInt, KindInteger, KindDecimal, KindSerial,
		KindDate, KindDateTime, KindByte, KindText, KindVarChar,
		KindNChar, KindNVarChar, KindInt8, KindSerial8, KindLVarChar,
		KindBoolean, KindBigInt,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether k is one of the known remote kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsCharacter reports whether k is a character kind stored inline.
func (k Kind) IsCharacter() bool {
	switch k {
	case KindChar, KindVarChar, KindNChar, KindNVarChar, KindLVarChar:
		return true
	}
	return false
}

// IsLargeObject reports whether values of k are fetched through a locator.
func (k Kind) IsLargeObject() bool {
	return k == KindText || k == KindByte
}

// IsWideInteger reports whether k is a 64-bit integer kind.
func (k Kind) IsWideInteger() bool {
	return k == KindInt8 || k == KindBigInt || k == KindSerial8
}

// IsNarrowInteger reports whether k is a 16 or 32-bit integer kind.
func (k Kind) IsNarrowInteger() bool {
	return k == KindSmallInt || k == KindInteger || k == KindSerial
}

var kindAliases = map[string]Kind{
	"CHAR":              KindChar,
	"CHARACTER":         KindChar,
	"BPCHAR":            KindChar,
	"SMALLINT":          KindSmallInt,
	"INT2":              KindSmallInt,
	"INTEGER":           KindInteger,
	"INT":               KindInteger,
	"INT4":              KindInteger,
	"DECIMAL":           KindDecimal,
	"DEC":               KindDecimal,
	"NUMERIC":           KindDecimal,
	"MONEY":             KindDecimal,
	"SERIAL":            KindSerial,
	"DATE":              KindDate,
	"DATETIME":          KindDateTime,
	"TIMESTAMP":         KindDateTime,
	"TIMESTAMP_S":       KindDateTime,
	"TIMESTAMP_MS":      KindDateTime,
	"TIMESTAMP_NS":      KindDateTime,
	"TIMESTAMPTZ":       KindDateTime,
	"BYTE":              KindByte,
	"BLOB":              KindByte,
	"BYTEA":             KindByte,
	"TEXT":              KindText,
	"VARCHAR":           KindVarChar,
	"CHARACTER VARYING": KindVarChar,
	"NCHAR":             KindNChar,
	"NVARCHAR":          KindNVarChar,
	"INT8":              KindInt8,
	"SERIAL8":           KindSerial8,
	"LVARCHAR":          KindLVarChar,
	"BOOLEAN":           KindBoolean,
	"BOOL":              KindBoolean,
	"BIGINT":            KindBigInt,
	"BIGSERIAL":         KindBigInt,
}

// ParseKind maps a remote column type name, as reported by the driver's
// describe step, to a Kind. Modifiers such as "(9,2)" or "YEAR TO FRACTION(5)"
// are ignored.
func ParseKind(typeName string) Kind {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if k, ok := kindAliases[name]; ok {
		return k
	}
	// DATETIME YEAR TO FRACTION and similar qualified forms.
	if fields := strings.Fields(name); len(fields) > 0 {
		if k, ok := kindAliases[fields[0]]; ok {
			return k
		}
	}
	return KindUnknown
}
