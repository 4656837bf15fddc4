package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Column is a local column of a foreign table.
type Column struct {
	// AttNum is the 1-based attribute number.
	AttNum  int
	Name    string
	TypeOID OID
	Typmod  int32
	NotNull bool
	// Dropped columns keep their attribute number but are never fetched.
	Dropped bool
}

// ForeignServer holds the server-level options and user mappings.
type ForeignServer struct {
	OID     OID
	Name    string
	Options map[string]string
	// UserMappings maps a local user name to its mapping options.
	// The "public" entry applies to users without their own mapping.
	UserMappings map[string]map[string]string
}

// PublicUser is the user-mapping key that applies to every user.
const PublicUser = "public"

// UserMapping returns the mapping options of user, falling back to public.
func (s *ForeignServer) UserMapping(user string) (map[string]string, error) {
	if m, ok := s.UserMappings[user]; ok {
		return m, nil
	}
	if m, ok := s.UserMappings[PublicUser]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("user mapping not found for %q on server %q", user, s.Name)
}

// Relation is a foreign table definition.
type Relation struct {
	OID     OID
	Name    string
	Server  *ForeignServer
	Columns []Column
	// Options are the foreign table options (database, table, query, ...).
	Options map[string]string
}

// Column returns the column with the given attribute number.
func (r *Relation) Column(attnum int) (*Column, bool) {
	for i := range r.Columns {
		if r.Columns[i].AttNum == attnum {
			return &r.Columns[i], true
		}
	}
	return nil, false
}

// LiveColumns returns the columns that are not dropped, in attribute order.
func (r *Relation) LiveColumns() []Column {
	cols := make([]Column, 0, len(r.Columns))
	for _, c := range r.Columns {
		if !c.Dropped {
			cols = append(cols, c)
		}
	}
	return cols
}

// ArrowSchema returns the Arrow schema of the live columns.
func (r *Relation) ArrowSchema() (*arrow.Schema, error) {
	cols := r.LiveColumns()
	fields := make([]arrow.Field, 0, len(cols))
	for _, c := range cols {
		dt, err := ArrowType(c.TypeOID, c.Typmod)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: !c.NotNull})
	}
	md := arrow.NewMetadata([]string{"relation"}, []string{r.Name})
	return arrow.NewSchema(fields, &md), nil
}
