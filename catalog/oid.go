package catalog

import "strconv"

// OID identifies a catalog object (type, operator, relation, namespace).
type OID uint32

// InvalidOID is the zero object identifier.
const InvalidOID OID = 0

// Builtin type identifiers.
const (
	BoolOID        OID = 16
	ByteaOID       OID = 17
	CharOID        OID = 18
	Int8OID        OID = 20
	Int2OID        OID = 21
	Int4OID        OID = 23
	TextOID        OID = 25
	BPCharOID      OID = 1042
	VarcharOID     OID = 1043
	DateOID        OID = 1082
	TimestampOID   OID = 1114
	TimestampTZOID OID = 1184
	NumericOID     OID = 1700
	RecordOID      OID = 2249
)

// Namespaces.
const (
	// PGCatalogNamespace is the namespace of every builtin object.
	PGCatalogNamespace OID = 11
	// PublicNamespace is the default namespace for user objects.
	PublicNamespace OID = 2200
)

func (o OID) String() string {
	return strconv.FormatUint(uint64(o), 10)
}
