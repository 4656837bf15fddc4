package conv

import (
	"github.com/hugr-lab/ifx-fdw/catalog"
)

// Column describes a local column of an open scan. The array of columns is
// built once when the scan opens and indexed by local ordinal.
type Column struct {
	// AttNum is the local 1-based attribute number.
	AttNum  int
	Name    string
	TypeOID catalog.OID
	Typmod  int32
	NotNull bool
	// RemotePos is the 0-based position of the matching remote attribute.
	RemotePos int
}

// ColumnsFor maps the live columns of rel to remote positions in order.
func ColumnsFor(rel *catalog.Relation) []Column {
	live := rel.LiveColumns()
	cols := make([]Column, len(live))
	for i, c := range live {
		cols[i] = Column{
			AttNum:    c.AttNum,
			Name:      c.Name,
			TypeOID:   c.TypeOID,
			Typmod:    c.Typmod,
			NotNull:   c.NotNull,
			RemotePos: i,
		}
	}
	return cols
}
