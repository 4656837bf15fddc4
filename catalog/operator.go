package catalog

// Operator describes a binary operator.
type Operator struct {
	OID       OID
	Name      string
	Namespace OID
	Left      OID
	Right     OID
	Result    OID
}

// firstBuiltinOperatorOID is where generated builtin operator OIDs start.
const firstBuiltinOperatorOID OID = 90000

var (
	comparisonNames = []string{"=", "<>", "<", ">", "<=", ">="}
	likeNames       = []string{"~~", "!~~", "~~*", "!~~*"}
	arithmeticNames = []string{"+", "-", "*", "/"}
)

// builtinOperators generates the builtin operator set. OIDs are assigned in
// declaration order and are stable for a given build.
func builtinOperators() []Operator {
	var ops []Operator
	next := firstBuiltinOperatorOID
	add := func(name string, left, right, result OID) {
		ops = append(ops, Operator{
			OID:       next,
			Name:      name,
			Namespace: PGCatalogNamespace,
			Left:      left,
			Right:     right,
			Result:    result,
		})
		next++
	}

	ints := []OID{Int2OID, Int4OID, Int8OID}
	for _, l := range ints {
		for _, r := range ints {
			for _, name := range comparisonNames {
				add(name, l, r, BoolOID)
			}
		}
	}
	for _, typ := range []OID{
		NumericOID, TextOID, VarcharOID, BPCharOID, DateOID,
		TimestampOID, TimestampTZOID, BoolOID, CharOID, ByteaOID,
	} {
		for _, name := range comparisonNames {
			add(name, typ, typ, BoolOID)
		}
	}
	for _, typ := range []OID{TextOID, VarcharOID, BPCharOID} {
		for _, name := range likeNames {
			add(name, typ, TextOID, BoolOID)
		}
	}
	for _, typ := range append(ints, NumericOID) {
		for _, name := range arithmeticNames {
			add(name, typ, typ, typ)
		}
	}
	return ops
}
