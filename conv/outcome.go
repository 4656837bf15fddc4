package conv

import "fmt"

// Status classifies a conversion result.
type Status uint8

const (
	// StatusConverted carries a local value.
	StatusConverted Status = iota
	// StatusNull marks a legitimately absent value.
	StatusNull
	// StatusInvalid marks an unsupported (remote kind, local type) pairing.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusNull:
		return "null"
	case StatusInvalid:
		return "invalid"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Outcome is the result of one value conversion.
type Outcome struct {
	Status Status
	// Value is set only for StatusConverted.
	Value any
}

// Converted returns an outcome carrying v.
func Converted(v any) Outcome {
	return Outcome{Status: StatusConverted, Value: v}
}

// Null returns the SQL-null outcome.
func Null() Outcome {
	return Outcome{Status: StatusNull}
}

// Invalid returns the incompatible-pairing outcome.
func Invalid() Outcome {
	return Outcome{Status: StatusInvalid}
}

// IsNull reports a SQL-null outcome.
func (o Outcome) IsNull() bool { return o.Status == StatusNull }

// IsInvalid reports an incompatible-pairing outcome.
func (o Outcome) IsInvalid() bool { return o.Status == StatusInvalid }
