package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// typmodHeader is the offset added to declared lengths and precisions.
const typmodHeader = 4

// Type describes a builtin host type.
type Type struct {
	OID  OID
	Name string
	// Composite reports a row type (never pushed into null tests).
	Composite bool
}

var builtinTypes = []Type{
	{OID: BoolOID, Name: "boolean"},
	{OID: ByteaOID, Name: "bytea"},
	{OID: CharOID, Name: `"char"`},
	{OID: Int8OID, Name: "bigint"},
	{OID: Int2OID, Name: "smallint"},
	{OID: Int4OID, Name: "integer"},
	{OID: TextOID, Name: "text"},
	{OID: BPCharOID, Name: "character"},
	{OID: VarcharOID, Name: "character varying"},
	{OID: DateOID, Name: "date"},
	{OID: TimestampOID, Name: "timestamp without time zone"},
	{OID: TimestampTZOID, Name: "timestamp with time zone"},
	{OID: NumericOID, Name: "numeric"},
	{OID: RecordOID, Name: "record", Composite: true},
}

var typeByOID = func() map[OID]Type {
	m := make(map[OID]Type, len(builtinTypes))
	for _, t := range builtinTypes {
		m[t.OID] = t
	}
	return m
}()

// LookupType returns the builtin type descriptor.
func LookupType(oid OID) (Type, bool) {
	t, ok := typeByOID[oid]
	return t, ok
}

// IsCharacterType reports whether oid is text, varchar or bpchar.
func IsCharacterType(oid OID) bool {
	return oid == TextOID || oid == VarcharOID || oid == BPCharOID
}

// VarcharTypmod returns the typmod of varchar(n) or bpchar(n).
func VarcharTypmod(n int) int32 {
	return int32(n) + typmodHeader
}

// NumericTypmod returns the typmod of numeric(precision, scale).
func NumericTypmod(precision, scale int) int32 {
	return int32((precision<<16)|scale) + typmodHeader
}

// CharLength returns the declared length of varchar(n)/bpchar(n), or -1.
func CharLength(typmod int32) int {
	if typmod < typmodHeader {
		return -1
	}
	return int(typmod - typmodHeader)
}

// NumericPrecisionScale decodes a numeric typmod.
// ok is false for unconstrained numerics.
func NumericPrecisionScale(typmod int32) (precision, scale int, ok bool) {
	if typmod < typmodHeader {
		return 0, 0, false
	}
	tm := typmod - typmodHeader
	return int(tm>>16) & 0xffff, int(tm & 0xffff), true
}

// TypeName formats a type with its modifier, e.g. "numeric(9,2)".
func TypeName(oid OID, typmod int32) string {
	t, ok := LookupType(oid)
	if !ok {
		return "type " + oid.String()
	}
	switch oid {
	case VarcharOID, BPCharOID:
		if n := CharLength(typmod); n >= 0 {
			return fmt.Sprintf("%s(%d)", t.Name, n)
		}
	case NumericOID:
		if p, s, ok := NumericPrecisionScale(typmod); ok {
			return fmt.Sprintf("numeric(%d,%d)", p, s)
		}
	}
	return t.Name
}

var typeAliases = map[string]OID{
	"bool":                        BoolOID,
	"boolean":                     BoolOID,
	"bytea":                       ByteaOID,
	`"char"`:                      CharOID,
	"int8":                        Int8OID,
	"bigint":                      Int8OID,
	"int2":                        Int2OID,
	"smallint":                    Int2OID,
	"int4":                        Int4OID,
	"int":                         Int4OID,
	"integer":                     Int4OID,
	"text":                        TextOID,
	"bpchar":                      BPCharOID,
	"char":                        BPCharOID,
	"character":                   BPCharOID,
	"varchar":                     VarcharOID,
	"character varying":           VarcharOID,
	"date":                        DateOID,
	"timestamp":                   TimestampOID,
	"timestamp without time zone": TimestampOID,
	"timestamptz":                 TimestampTZOID,
	"timestamp with time zone":    TimestampTZOID,
	"numeric":                     NumericOID,
	"decimal":                     NumericOID,
}

// ParseTypeName parses a declared column type such as "varchar(20)",
// "numeric(9,2)" or "bigint" into its OID and typmod.
func ParseTypeName(name string) (OID, int32, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	base, args := name, ""
	if i := strings.IndexByte(name, '('); i >= 0 {
		if !strings.HasSuffix(name, ")") {
			return InvalidOID, -1, fmt.Errorf("%w: type name %q", ErrInvalidInput, name)
		}
		base, args = strings.TrimSpace(name[:i]), name[i+1:len(name)-1]
	}
	oid, ok := typeAliases[base]
	if !ok {
		return InvalidOID, -1, fmt.Errorf("%w: type %q does not exist", ErrTypeLookup, base)
	}
	if args == "" {
		if base == "char" || base == "character" {
			return oid, VarcharTypmod(1), nil
		}
		return oid, -1, nil
	}

	var mods []int
	for _, a := range strings.Split(args, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil || n < 0 {
			return InvalidOID, -1, fmt.Errorf("%w: invalid type modifier in %q", ErrInvalidInput, name)
		}
		mods = append(mods, n)
	}

	switch oid {
	case VarcharOID, BPCharOID:
		if len(mods) != 1 || mods[0] < 1 {
			return InvalidOID, -1, fmt.Errorf("%w: length for type %s must be at least 1", ErrInvalidInput, base)
		}
		return oid, VarcharTypmod(mods[0]), nil
	case NumericOID:
		precision, scale := mods[0], 0
		if len(mods) == 2 {
			scale = mods[1]
		}
		if len(mods) > 2 || precision < 1 || precision > 1000 || scale > precision {
			return InvalidOID, -1, fmt.Errorf("%w: invalid numeric modifier in %q", ErrInvalidInput, name)
		}
		return oid, NumericTypmod(precision, scale), nil
	case TimestampOID, TimestampTZOID:
		if len(mods) != 1 || mods[0] > 6 {
			return InvalidOID, -1, fmt.Errorf("%w: timestamp precision in %q", ErrInvalidInput, name)
		}
		return oid, int32(mods[0]), nil
	}
	return InvalidOID, -1, fmt.Errorf("%w: type modifier is not allowed for type %q", ErrInvalidInput, base)
}
