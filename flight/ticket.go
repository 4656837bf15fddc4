package flight

import (
	"fmt"

	"github.com/hugr-lab/ifx-fdw/internal/msgpack"
)

// TicketData is the decoded content of a DoGet ticket.
type TicketData struct {
	// Table is the foreign table name.
	Table string `msgpack:"table"`

	// Filter is a JSON array of filter clauses, implicitly ANDed. Column
	// references use range table index 1.
	Filter []byte `msgpack:"filter,omitempty"`

	// BatchSize is the maximum rows per record (0 for the default).
	BatchSize int `msgpack:"batch_size,omitempty"`

	// Plan is the marshaled scan plan attached by GetFlightInfo.
	Plan []byte `msgpack:"plan,omitempty"`
}

// EncodeTicket creates an opaque ticket.
func EncodeTicket(t TicketData) ([]byte, error) {
	if t.Table == "" {
		return nil, fmt.Errorf("%w: table name cannot be empty", ErrInvalidTicket)
	}
	if t.BatchSize < 0 {
		return nil, fmt.Errorf("%w: negative batch size %d", ErrInvalidTicket, t.BatchSize)
	}
	return msgpack.Encode(&t)
}

// DecodeTicket parses a ticket produced by EncodeTicket.
func DecodeTicket(data []byte) (*TicketData, error) {
	var t TicketData
	if err := msgpack.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if t.Table == "" {
		return nil, fmt.Errorf("%w: decoded ticket has empty table name", ErrInvalidTicket)
	}
	if t.BatchSize < 0 {
		return nil, fmt.Errorf("%w: negative batch size %d", ErrInvalidTicket, t.BatchSize)
	}
	return &t, nil
}
