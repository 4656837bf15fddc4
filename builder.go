package ifxfdw

import (
	"fmt"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/options"
)

// First OIDs handed out by Build.
const (
	firstServerOID   catalog.OID = 16000
	firstRelationOID catalog.OID = 16384
)

// ServerDef defines a foreign server.
type ServerDef struct {
	// Name identifies the server in ForeignTableDef.Server.
	// REQUIRED: MUST be non-empty and unique.
	Name string

	// Options are the server options (informixserver, driver, dsn, ...).
	Options map[string]string

	// UserMappings maps local users to their mapping options. The "public"
	// entry applies to users without their own mapping.
	UserMappings map[string]map[string]string
}

// ColumnDef defines a column of a foreign table.
type ColumnDef struct {
	Name string
	// Type is a declared type name such as "integer" or "varchar(20)".
	Type    string
	NotNull bool
	// Dropped keeps the attribute number but removes the column from scans.
	Dropped bool
}

// ForeignTableDef defines a foreign table.
type ForeignTableDef struct {
	// Name is the local table name.
	// REQUIRED: MUST be non-empty and unique.
	Name string

	// Server names a server added with CatalogBuilder.Server.
	Server string

	// Columns in attribute order.
	Columns []ColumnDef

	// Options are the table options (database, table or query, ...).
	Options map[string]string
}

// CatalogBuilder builds the foreign table catalog.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	servers   []ServerDef
	tables    []ForeignTableDef
	operators []catalog.Operator
	built     bool
}

// NewCatalogBuilder creates an empty catalog builder.
//
// Example:
//
//	cat, err := ifxfdw.NewCatalogBuilder().
//	    Server(ifxfdw.ServerDef{
//	        Name:         "ifx",
//	        Options:      map[string]string{"informixserver": "ol_informix1170"},
//	        UserMappings: map[string]map[string]string{"public": {"username": "informix"}},
//	    }).
//	    Table(ifxfdw.ForeignTableDef{
//	        Name:    "inttest",
//	        Server:  "ifx",
//	        Columns: []ifxfdw.ColumnDef{{Name: "f1", Type: "bigint"}},
//	        Options: map[string]string{"database": "regression", "table": "inttest"},
//	    }).
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Server adds a foreign server.
func (cb *CatalogBuilder) Server(def ServerDef) *CatalogBuilder {
	cb.servers = append(cb.servers, def)
	return cb
}

// Table adds a foreign table.
func (cb *CatalogBuilder) Table(def ForeignTableDef) *CatalogBuilder {
	cb.tables = append(cb.tables, def)
	return cb
}

// Operators registers operators beyond the builtin ones, for example those
// of an extension namespace.
func (cb *CatalogBuilder) Operators(ops ...catalog.Operator) *CatalogBuilder {
	cb.operators = append(cb.operators, ops...)
	return cb
}

// Build validates the definitions and returns the immutable catalog.
// Every table's options are resolved against each user mapping of its
// server, so option errors surface here rather than at the first scan.
// Can only be called once.
func (cb *CatalogBuilder) Build() (*catalog.StaticCatalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}

	servers := make(map[string]*catalog.ForeignServer, len(cb.servers))
	for i, def := range cb.servers {
		if def.Name == "" {
			return nil, fmt.Errorf("server name cannot be empty")
		}
		if _, ok := servers[def.Name]; ok {
			return nil, fmt.Errorf("duplicate server name: %s", def.Name)
		}
		if err := options.Validate(options.ServerContext, def.Options); err != nil {
			return nil, fmt.Errorf("server %s: %w", def.Name, err)
		}
		for user, m := range def.UserMappings {
			if err := options.Validate(options.UserMappingContext, m); err != nil {
				return nil, fmt.Errorf("server %s: user mapping for %s: %w", def.Name, user, err)
			}
		}
		servers[def.Name] = &catalog.ForeignServer{
			OID:          firstServerOID + catalog.OID(i),
			Name:         def.Name,
			Options:      def.Options,
			UserMappings: def.UserMappings,
		}
	}

	rels := make([]*catalog.Relation, 0, len(cb.tables))
	seen := make(map[string]bool, len(cb.tables))
	for i, def := range cb.tables {
		if def.Name == "" {
			return nil, fmt.Errorf("table name cannot be empty")
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate table name: %s", def.Name)
		}
		seen[def.Name] = true

		server, ok := servers[def.Server]
		if !ok {
			return nil, fmt.Errorf("table %s: server %q not defined", def.Name, def.Server)
		}
		if err := resolveAll(server, def.Options); err != nil {
			return nil, fmt.Errorf("table %s: %w", def.Name, err)
		}
		columns, err := buildColumns(def.Columns)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", def.Name, err)
		}

		rel := &catalog.Relation{
			OID:     firstRelationOID + catalog.OID(i),
			Name:    def.Name,
			Server:  server,
			Columns: columns,
			Options: def.Options,
		}
		if _, err := rel.ArrowSchema(); err != nil {
			return nil, fmt.Errorf("table %s: %w", def.Name, err)
		}
		rels = append(rels, rel)
	}

	cb.built = true
	return catalog.NewStaticCatalog(
		catalog.WithOperators(cb.operators...),
		catalog.WithRelations(rels...),
	), nil
}

func resolveAll(server *catalog.ForeignServer, table map[string]string) error {
	if len(server.UserMappings) == 0 {
		_, err := options.Resolve(server.Options, nil, table)
		return err
	}
	for user, m := range server.UserMappings {
		if _, err := options.Resolve(server.Options, m, table); err != nil {
			return fmt.Errorf("user mapping for %s: %w", user, err)
		}
	}
	return nil
}

func buildColumns(defs []ColumnDef) ([]catalog.Column, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}
	columns := make([]catalog.Column, len(defs))
	names := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("column %d: name cannot be empty", i+1)
		}
		if names[def.Name] {
			return nil, fmt.Errorf("duplicate column name: %s", def.Name)
		}
		names[def.Name] = true
		typ, typmod, err := catalog.ParseTypeName(def.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", def.Name, err)
		}
		columns[i] = catalog.Column{
			AttNum:  i + 1,
			Name:    def.Name,
			TypeOID: typ,
			Typmod:  typmod,
			NotNull: def.NotNull,
			Dropped: def.Dropped,
		}
	}
	return columns, nil
}
