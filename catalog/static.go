package catalog

import (
	"context"
	"fmt"
	"sort"
)

type opKey struct {
	name        string
	left, right OID
}

// StaticCatalog is an immutable catalog of builtin types, operators, casts
// and the foreign tables it was built with.
type StaticCatalog struct {
	inputs    map[OID]InputFunc
	outputs   map[OID]OutputFunc
	casts     map[castKey]CastFunc
	operators map[OID]*Operator
	byName    map[opKey]*Operator
	relations map[string]*Relation
}

// Option configures a StaticCatalog.
type Option func(*StaticCatalog)

// WithOperators registers additional operators (e.g. extension operators
// living outside the builtin namespace).
func WithOperators(ops ...Operator) Option {
	return func(c *StaticCatalog) {
		for i := range ops {
			c.addOperator(ops[i])
		}
	}
}

// WithRelations registers foreign tables.
func WithRelations(rels ...*Relation) Option {
	return func(c *StaticCatalog) {
		for _, r := range rels {
			c.relations[r.Name] = r
		}
	}
}

// NewStaticCatalog creates the builtin catalog.
func NewStaticCatalog(opts ...Option) *StaticCatalog {
	c := &StaticCatalog{
		inputs: map[OID]InputFunc{
			BoolOID:        boolIn,
			ByteaOID:       byteaIn,
			CharOID:        charIn,
			Int8OID:        intIn(Int8OID, 64),
			Int2OID:        intIn(Int2OID, 16),
			Int4OID:        intIn(Int4OID, 32),
			TextOID:        textIn,
			BPCharOID:      bpcharIn,
			VarcharOID:     varcharIn,
			DateOID:        dateIn,
			TimestampOID:   timestampIn,
			TimestampTZOID: timestampTZIn,
			NumericOID:     numericIn,
		},
		outputs: map[OID]OutputFunc{
			BoolOID:        boolOut,
			ByteaOID:       byteaOut,
			CharOID:        charOut,
			Int8OID:        intOut(Int8OID),
			Int2OID:        intOut(Int2OID),
			Int4OID:        intOut(Int4OID),
			TextOID:        stringOut(TextOID),
			BPCharOID:      stringOut(BPCharOID),
			VarcharOID:     stringOut(VarcharOID),
			DateOID:        timeOut(DateOID, DateLayout),
			TimestampOID:   timeOut(TimestampOID, TimestampLayout),
			TimestampTZOID: timeOut(TimestampTZOID, TimestampTZLayout),
			NumericOID:     numericOut,
		},
		casts:     buildCasts(),
		operators: make(map[OID]*Operator),
		byName:    make(map[opKey]*Operator),
		relations: make(map[string]*Relation),
	}
	for _, op := range builtinOperators() {
		c.addOperator(op)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *StaticCatalog) addOperator(op Operator) {
	o := op
	c.operators[o.OID] = &o
	key := opKey{o.Name, o.Left, o.Right}
	// Builtins win name resolution over extension overloads.
	if prev, ok := c.byName[key]; !ok || prev.Namespace != PGCatalogNamespace {
		c.byName[key] = &o
	}
}

// InputFunction implements TypeCatalog.
func (c *StaticCatalog) InputFunction(typ OID) (InputFunc, error) {
	fn, ok := c.inputs[typ]
	if !ok {
		return nil, fmt.Errorf("%w for input function for type %d", ErrTypeLookup, typ)
	}
	return fn, nil
}

// OutputFunction implements TypeCatalog.
func (c *StaticCatalog) OutputFunction(typ OID) (OutputFunc, error) {
	fn, ok := c.outputs[typ]
	if !ok {
		return nil, fmt.Errorf("%w for output function for type %d", ErrTypeLookup, typ)
	}
	return fn, nil
}

// CastFunction implements TypeCatalog.
func (c *StaticCatalog) CastFunction(source, target OID) (CastFunc, error) {
	fn, ok := c.casts[castKey{source, target}]
	if !ok {
		return nil, fmt.Errorf("%w for cast from type %d to type %d", ErrTypeLookup, source, target)
	}
	return fn, nil
}

// Operator implements OperatorCatalog.
func (c *StaticCatalog) Operator(oid OID) (*Operator, error) {
	op, ok := c.operators[oid]
	if !ok {
		return nil, fmt.Errorf("%w for operator %d", ErrTypeLookup, oid)
	}
	return op, nil
}

// OperatorByName resolves an operator by name and operand types.
func (c *StaticCatalog) OperatorByName(name string, left, right OID) (*Operator, error) {
	op, ok := c.byName[opKey{name, left, right}]
	if !ok {
		return nil, fmt.Errorf("%w: operator does not exist: %s %s %s",
			ErrTypeLookup, TypeName(left, -1), name, TypeName(right, -1))
	}
	return op, nil
}

// Relations implements RelationCatalog. Relations are sorted by name.
func (c *StaticCatalog) Relations(ctx context.Context) ([]*Relation, error) {
	result := make([]*Relation, 0, len(c.relations))
	for _, r := range c.relations {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Relation implements RelationCatalog.
func (c *StaticCatalog) Relation(ctx context.Context, name string) (*Relation, error) {
	r, ok := c.relations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRelationNotFound, name)
	}
	return r, nil
}
