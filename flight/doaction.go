package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/ifx-fdw/internal/msgpack"
	"github.com/hugr-lab/ifx-fdw/internal/serialize"
	"github.com/hugr-lab/ifx-fdw/scan"
)

// Action types answered by DoAction.
const (
	// ActionListTables returns the foreign tables as a zstd-compressed Arrow
	// IPC stream.
	ActionListTables = "list_tables"
	// ActionConnectionStats returns the cached connections, MessagePack
	// encoded.
	ActionConnectionStats = "connection_stats"
	// ActionCloseConnection drops the cached connection named by the body.
	ActionCloseConnection = "close_connection"
	// ActionExplain plans the ticket in the body and returns the explain
	// properties, MessagePack encoded.
	ActionExplain = "explain"
)

var actionTypes = []*flight.ActionType{
	{Type: ActionListTables, Description: "foreign tables as zstd-compressed Arrow IPC"},
	{Type: ActionConnectionStats, Description: "cached remote connections"},
	{Type: ActionCloseConnection, Description: "close a cached remote connection"},
	{Type: ActionExplain, Description: "plan a ticket and explain the remote query"},
}

// ListActions lists the action types DoAction answers.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return status.Errorf(codes.Internal, "failed to send action type: %v", err)
		}
	}
	return nil
}

// DoAction executes server actions.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := stream.Context()

	s.logger.Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
	)

	switch action.GetType() {
	case ActionListTables:
		return s.handleListTables(ctx, stream)
	case ActionConnectionStats:
		return s.handleConnectionStats(stream)
	case ActionCloseConnection:
		return s.handleCloseConnection(action, stream)
	case ActionExplain:
		return s.handleExplain(ctx, action, stream)
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
}

func (s *Server) handleListTables(ctx context.Context, stream flight.FlightService_DoActionServer) error {
	data, err := serialize.CompressTables(ctx, s.tables, s.allocator)
	if err != nil {
		s.logger.Error("Failed to serialize foreign tables", "error", err)
		return statusError(err, "failed to serialize foreign tables")
	}
	return s.sendResult(stream, data)
}

func (s *Server) handleConnectionStats(stream flight.FlightService_DoActionServer) error {
	stats := s.registry.Stats()
	data, err := msgpack.Encode(stats)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode connection stats: %v", err)
	}
	return s.sendResult(stream, data)
}

func (s *Server) handleCloseConnection(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	name := string(action.GetBody())
	if name == "" {
		return status.Error(codes.InvalidArgument, "connection name is required")
	}
	_, ok, err := s.registry.Remove(name)
	if !ok {
		return status.Errorf(codes.NotFound, "connection not cached: %s", name)
	}
	if err != nil {
		s.logger.Warn("Failed to close connection", "connection", name, "error", err)
		return status.Errorf(codes.Internal, "failed to close connection %s: %v", name, err)
	}
	s.logger.Info("Connection closed", "connection", name)
	return s.sendResult(stream, []byte(name))
}

func (s *Server) handleExplain(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	t, err := DecodeTicket(action.GetBody())
	if err != nil {
		return statusError(err, "invalid ticket")
	}
	plan, _, err := s.planTicket(ctx, t)
	if err != nil {
		return statusError(err, "failed to plan scan of "+t.Table)
	}
	data, err := msgpack.Encode(scan.Explain(plan, true))
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode explain: %v", err)
	}
	return s.sendResult(stream, data)
}

func (s *Server) sendResult(stream flight.FlightService_DoActionServer, body []byte) error {
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		s.logger.Error("Failed to send action result", "error", err)
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}
