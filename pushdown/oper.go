package pushdown

import (
	"github.com/hugr-lab/ifx-fdw/catalog"
)

// OprType classifies a fragment.
type OprType int

const (
	OprEqual OprType = iota
	OprNotEqual
	OprLess
	OprLessEqual
	OprGreater
	OprGreaterEqual
	OprLike
	OprIsNull
	OprIsNotNull
	OprAnd
	OprOr
	OprNot
	OprNotSupported
)

var oprTypeNames = [...]string{
	OprEqual:        "=",
	OprNotEqual:     "<>",
	OprLess:         "<",
	OprLessEqual:    "<=",
	OprGreater:      ">",
	OprGreaterEqual: ">=",
	OprLike:         "LIKE",
	OprIsNull:       "IS NULL",
	OprIsNotNull:    "IS NOT NULL",
	OprAnd:          "AND",
	OprOr:           "OR",
	OprNot:          "NOT",
	OprNotSupported: "NOT SUPPORTED",
}

func (t OprType) String() string {
	if t < 0 || int(t) >= len(oprTypeNames) {
		return "UNKNOWN"
	}
	return oprTypeNames[t]
}

// IsConnective reports whether t is a logical connective marker.
func (t OprType) IsConnective() bool {
	return t == OprAnd || t == OprOr || t == OprNot
}

// operatorTypes lists the builtin operators whose semantics are identical on
// both engines.
var operatorTypes = map[string]OprType{
	">=": OprGreaterEqual,
	"<=": OprLessEqual,
	"<":  OprLess,
	">":  OprGreater,
	"=":  OprEqual,
	"<>": OprNotEqual,
	"~~": OprLike,
}

// MapOperator classifies a catalog operator. Operators that cannot be looked
// up, live outside the builtin namespace, or are not in the fixed
// name table are OprNotSupported.
func MapOperator(ops catalog.OperatorCatalog, oid catalog.OID) OprType {
	op, err := ops.Operator(oid)
	if err != nil {
		return OprNotSupported
	}
	if op.Namespace != catalog.PGCatalogNamespace {
		return OprNotSupported
	}
	if t, ok := operatorTypes[op.Name]; ok {
		return t
	}
	return OprNotSupported
}
