package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/hugr-lab/ifx-fdw/auth"
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/filter"
	"github.com/hugr-lab/ifx-fdw/internal/recovery"
	"github.com/hugr-lab/ifx-fdw/scan"
)

// scanRelID is the range table index filter column references in tickets
// carry.
const scanRelID = 1

// ticketFromDescriptor reads the scan request of a descriptor: a PATH of one
// element naming the table, or a CMD holding an encoded ticket.
func ticketFromDescriptor(desc *flight.FlightDescriptor) (*TicketData, error) {
	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 1 || path[0] == "" {
			return nil, fmt.Errorf("%w: path must contain exactly one table name", ErrInvalidTicket)
		}
		return &TicketData{Table: path[0]}, nil
	case flight.DescriptorCMD:
		return DecodeTicket(desc.GetCmd())
	default:
		return nil, fmt.Errorf("%w: unsupported descriptor type %v", ErrInvalidTicket, desc.GetType())
	}
}

// planTicket resolves the table of t and plans its scan. A plan attached to
// the ticket is reused when it was made for the same relation and user.
func (s *Server) planTicket(ctx context.Context, t *TicketData) (*scan.Plan, *catalog.Relation, error) {
	rel, err := s.tables.Relation(ctx, t.Table)
	if err != nil {
		return nil, nil, err
	}

	if len(t.Plan) > 0 {
		plan, err := scan.UnmarshalPlan(t.Plan)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
		}
		if plan.RelationOID == rel.OID && plan.User == auth.IdentityFromContext(ctx) {
			if _, ok := s.registry.Lookup(plan.ConnName); ok {
				return plan, rel, nil
			}
		}
		s.logger.Debug("Replanning stale ticket",
			"table", t.Table,
			"plan", plan.ID,
		)
	}

	quals, err := filter.ParseClauses(t.Filter, filter.WithOperators(s.types), filter.WithTypes(s.types))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	plan, err := recovery.RecoverToValue(s.logger, "plan "+rel.Name, func() (*scan.Plan, error) {
		return s.planner.Plan(ctx, rel, scanRelID, quals)
	})
	if err != nil {
		return nil, nil, err
	}
	return plan, rel, nil
}
