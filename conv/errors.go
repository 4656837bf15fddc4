package conv

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
)

var (
	// ErrOutOfRange is returned when a value does not fit the remote
	// or local integer width.
	ErrOutOfRange = catalog.ErrOutOfRange

	// ErrNoSuchColumn is returned for local ordinals outside the column array
	// or columns mapped to a missing remote attribute.
	ErrNoSuchColumn = errors.New("no such column")
)

// IncompatibleTypeError reports an unsupported (remote kind, local type)
// pairing for a column.
type IncompatibleTypeError struct {
	Column string
	Local  catalog.OID
	Typmod int32
	Remote ifx.Kind
}

func (e *IncompatibleTypeError) Error() string {
	return fmt.Sprintf("type mismatch for column %q: cannot convert informix type %s to %s",
		e.Column, e.Remote, catalog.TypeName(e.Local, e.Typmod))
}
