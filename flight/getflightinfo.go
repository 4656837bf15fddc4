package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo plans a scan of one foreign table.
//
// The descriptor is either a PATH of one element naming the table, or a CMD
// holding an encoded TicketData with an optional filter and batch size.
// Returns FlightInfo with:
//   - Schema: Arrow schema of the table's live columns
//   - Ticket: the request with the marshaled plan attached
//   - TotalRecords: the remote row estimate
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	s.logger.Debug("GetFlightInfo called",
		"type", desc.GetType(),
		"path_length", len(desc.GetPath()),
	)

	t, err := ticketFromDescriptor(desc)
	if err != nil {
		return nil, statusError(err, "invalid descriptor")
	}

	plan, rel, err := s.planTicket(ctx, t)
	if err != nil {
		s.logger.Error("Failed to plan scan", "table", t.Table, "error", err)
		return nil, statusError(err, "failed to plan scan of "+t.Table)
	}

	arrowSchema, err := rel.ArrowSchema()
	if err != nil {
		return nil, statusError(err, "failed to build schema")
	}

	t.Plan, err = plan.Marshal()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode plan: %v", err)
	}
	ticket, err := EncodeTicket(*t)
	if err != nil {
		return nil, statusError(err, "failed to encode ticket")
	}

	endpoint := &flight.FlightEndpoint{
		Ticket: &flight.Ticket{Ticket: ticket},
	}
	if s.address != "" {
		endpoint.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
	}

	s.logger.Debug("GetFlightInfo successful",
		"table", t.Table,
		"query", plan.Query,
		"total_cost", plan.TotalCost,
	)

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(arrowSchema, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{endpoint},
		TotalRecords:     int64(plan.Rows),
		TotalBytes:       -1,
	}, nil
}
