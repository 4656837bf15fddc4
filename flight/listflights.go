package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights sends one FlightInfo per foreign table, with its schema and an
// unplanned ticket. No remote connection is opened.
//
// Criteria are ignored.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := stream.Context()

	s.logger.Debug("ListFlights called")

	rels, err := s.tables.Relations(ctx)
	if err != nil {
		s.logger.Error("Failed to list foreign tables", "error", err)
		return statusError(err, "failed to list foreign tables")
	}

	for _, rel := range rels {
		arrowSchema, err := rel.ArrowSchema()
		if err != nil {
			s.logger.Warn("Skipping foreign table without Arrow schema",
				"table", rel.Name,
				"error", err,
			)
			continue
		}
		ticket, err := EncodeTicket(TicketData{Table: rel.Name})
		if err != nil {
			return statusError(err, "failed to encode ticket")
		}

		info := &flight.FlightInfo{
			Schema: flight.SerializeSchema(arrowSchema, s.allocator),
			FlightDescriptor: &flight.FlightDescriptor{
				Type: flight.DescriptorPATH,
				Path: []string{rel.Name},
			},
			Endpoint: []*flight.FlightEndpoint{
				{Ticket: &flight.Ticket{Ticket: ticket}},
			},
			TotalRecords: -1,
			TotalBytes:   -1,
		}
		if err := stream.Send(info); err != nil {
			s.logger.Error("Failed to send FlightInfo", "error", err)
			return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
		}
	}

	s.logger.Debug("ListFlights completed", "tables", len(rels))
	return nil
}
