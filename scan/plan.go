// Package scan plans and executes foreign table scans: it resolves the
// connection, runs the pushdown analyzer, fetches remote rows through the
// conversion matrix and builds Arrow records from them.
package scan

import (
	"fmt"
	"strconv"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/internal/msgpack"
	"github.com/hugr-lab/ifx-fdw/internal/serialize"
)

// Startup costs of a scan, by connection state.
const (
	NewConnectionStartupCost    = 500.0
	CachedConnectionStartupCost = 100.0
	// TupleCost is the per-row cost added to the total cost.
	TupleCost = 0.01
)

// Plan is the private plan data of a foreign scan. It travels between
// planning and execution as an opaque blob (see Marshal).
type Plan struct {
	ID           string      `msgpack:"id"`
	RelationOID  catalog.OID `msgpack:"relation_oid"`
	RelationName string      `msgpack:"relation"`
	ScanRelID    int         `msgpack:"scan_relid"`
	User         string      `msgpack:"user,omitempty"`

	ConnName      string `msgpack:"conn_name"`
	Driver        string `msgpack:"driver"`
	Database      string `msgpack:"database"`
	StatementName string `msgpack:"statement"`
	CursorName    string `msgpack:"cursor"`

	// BaseQuery is the query given by the table options.
	BaseQuery string `msgpack:"base_query"`
	// Query is BaseQuery with the pushed-down condition appended.
	Query string `msgpack:"query"`
	// Fragments are the rendered pushdown fragments, connectives included.
	Fragments []string `msgpack:"fragments,omitempty"`
	Pushed    bool     `msgpack:"pushed"`
	Exact     bool     `msgpack:"exact"`

	ConnectionCached bool    `msgpack:"conn_cached"`
	ConnectionCosts  float64 `msgpack:"conn_costs"`
	StartupCost      float64 `msgpack:"startup_cost"`
	TotalCost        float64 `msgpack:"total_cost"`
	Rows             float64 `msgpack:"rows"`
}

// Marshal encodes the plan with MessagePack and compresses it with zstd.
func (p *Plan) Marshal() ([]byte, error) {
	data, err := msgpack.Encode(p)
	if err != nil {
		return nil, err
	}
	return serialize.Compress(data)
}

// UnmarshalPlan decodes a blob produced by Marshal.
func UnmarshalPlan(blob []byte) (*Plan, error) {
	data, err := serialize.Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	var p Plan
	if err := msgpack.Decode(data, &p); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return &p, nil
}

// ExplainProperty is one line of EXPLAIN output.
type ExplainProperty struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Explain lists the remote cost settings and the query sent to the server.
// costs controls whether cost properties are included.
func Explain(p *Plan, costs bool) []ExplainProperty {
	var out []ExplainProperty
	if costs {
		out = append(out,
			ExplainProperty{"Remote server startup cost", strconv.FormatFloat(p.ConnectionCosts, 'f', 4, 64)},
			ExplainProperty{"Remote table row estimate", strconv.FormatFloat(p.Rows, 'f', 4, 64)},
		)
	}
	return append(out, ExplainProperty{"Informix query", p.Query})
}
