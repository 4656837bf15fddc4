package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Text layouts accepted by the date and timestamp input functions.
const (
	DateLayout        = "2006-01-02"
	TimestampLayout   = "2006-01-02 15:04:05.999999"
	TimestampTZLayout = "2006-01-02 15:04:05.999999-07"
)

var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	DateLayout,
	"01/02/2006 15:04:05",
}

var timestampTZLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
}

func invalidInput(typ OID, text string) error {
	return fmt.Errorf("%w for type %s: %q", ErrInvalidInput, TypeName(typ, -1), text)
}

func outOfRange(typ OID, text string) error {
	return fmt.Errorf("%w: value %q for type %s", ErrOutOfRange, text, TypeName(typ, -1))
}

func intIn(typ OID, bits int) InputFunc {
	return func(text string, _ int32) (any, error) {
		s := strings.TrimSpace(text)
		v, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, outOfRange(typ, s)
			}
			return nil, invalidInput(typ, text)
		}
		switch bits {
		case 16:
			return int16(v), nil
		case 32:
			return int32(v), nil
		}
		return v, nil
	}
}

func numericIn(text string, typmod int32) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return nil, invalidInput(NumericOID, text)
	}
	return ApplyNumericTypmod(d, typmod)
}

// ApplyNumericTypmod rounds d to the declared scale and checks the declared
// precision.
func ApplyNumericTypmod(d decimal.Decimal, typmod int32) (decimal.Decimal, error) {
	precision, scale, ok := NumericPrecisionScale(typmod)
	if !ok {
		return d, nil
	}
	d = d.Round(int32(scale))
	limit := decimal.New(1, int32(precision-scale))
	if d.Abs().GreaterThanOrEqual(limit) {
		return decimal.Decimal{}, fmt.Errorf("%w: numeric field overflow, a field with precision %d, scale %d must round to an absolute value less than 10^%d",
			ErrOutOfRange, precision, scale, precision-scale)
	}
	return d, nil
}

// applyCharTypmod enforces varchar(n)/bpchar(n). Excess characters are
// accepted only when they are blanks, unless explicit is set (casts truncate).
func applyCharTypmod(typ OID, s string, typmod int32, explicit bool) (string, error) {
	n := CharLength(typmod)
	if n < 0 {
		return s, nil
	}
	length := utf8.RuneCountInString(s)
	if length > n {
		cut := 0
		for i := 0; i < n; i++ {
			_, size := utf8.DecodeRuneInString(s[cut:])
			cut += size
		}
		if !explicit && strings.TrimRight(s[cut:], " ") != "" {
			return "", fmt.Errorf("%w for type %s", ErrStringTooLong, TypeName(typ, typmod))
		}
		s, length = s[:cut], n
	}
	if typ == BPCharOID && length < n {
		s += strings.Repeat(" ", n-length)
	}
	return s, nil
}

func textIn(text string, _ int32) (any, error) {
	return text, nil
}

func varcharIn(text string, typmod int32) (any, error) {
	return applyCharTypmod(VarcharOID, text, typmod, false)
}

func bpcharIn(text string, typmod int32) (any, error) {
	return applyCharTypmod(BPCharOID, text, typmod, false)
}

func byteaIn(text string, _ int32) (any, error) {
	if strings.HasPrefix(text, `\x`) {
		b, err := hex.DecodeString(text[2:])
		if err != nil {
			return nil, invalidInput(ByteaOID, text)
		}
		return b, nil
	}
	return []byte(text), nil
}

func charIn(text string, _ int32) (any, error) {
	if text == "" {
		return byte(0), nil
	}
	return text[0], nil
}

func boolIn(text string, _ int32) (any, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "t", "true", "y", "yes", "on", "1":
		return true, nil
	case "f", "false", "n", "no", "off", "0":
		return false, nil
	}
	return nil, invalidInput(BoolOID, text)
}

func dateIn(text string, _ int32) (any, error) {
	s := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return nil, invalidInput(DateOID, text)
}

func roundTimestamp(t time.Time, typmod int32) time.Time {
	precision := 6
	if typmod >= 0 && typmod < 6 {
		precision = int(typmod)
	}
	unit := time.Second
	for i := 0; i < precision; i++ {
		unit /= 10
	}
	return t.Round(unit)
}

func timestampIn(text string, typmod int32) (any, error) {
	s := strings.TrimSpace(text)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return roundTimestamp(t, typmod), nil
		}
	}
	return nil, invalidInput(TimestampOID, text)
}

func timestampTZIn(text string, typmod int32) (any, error) {
	s := strings.TrimSpace(text)
	for _, layout := range timestampTZLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return roundTimestamp(t.UTC(), typmod), nil
		}
	}
	// Without an explicit zone the value is taken as UTC.
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return roundTimestamp(t, typmod), nil
		}
	}
	return nil, invalidInput(TimestampTZOID, text)
}

// ToInt64 widens any Go integer value.
func ToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	}
	return 0, false
}

func wrongValue(typ OID, value any) error {
	return fmt.Errorf("%w: %T is not a value of type %s", ErrInvalidInput, value, TypeName(typ, -1))
}

func intOut(typ OID) OutputFunc {
	return func(value any) (string, error) {
		v, ok := ToInt64(value)
		if !ok {
			return "", wrongValue(typ, value)
		}
		return strconv.FormatInt(v, 10), nil
	}
}

func numericOut(value any) (string, error) {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return "", wrongValue(NumericOID, value)
	}
	scale := int32(0)
	if d.Exponent() < 0 {
		scale = -d.Exponent()
	}
	return d.StringFixed(scale), nil
}

func stringOut(typ OID) OutputFunc {
	return func(value any) (string, error) {
		s, ok := value.(string)
		if !ok {
			return "", wrongValue(typ, value)
		}
		return s, nil
	}
}

func byteaOut(value any) (string, error) {
	b, ok := value.([]byte)
	if !ok {
		return "", wrongValue(ByteaOID, value)
	}
	return `\x` + hex.EncodeToString(b), nil
}

func charOut(value any) (string, error) {
	b, ok := value.(byte)
	if !ok {
		return "", wrongValue(CharOID, value)
	}
	if b == 0 {
		return "", nil
	}
	return string([]byte{b}), nil
}

func boolOut(value any) (string, error) {
	b, ok := value.(bool)
	if !ok {
		return "", wrongValue(BoolOID, value)
	}
	if b {
		return "t", nil
	}
	return "f", nil
}

func timeOut(typ OID, layout string) OutputFunc {
	return func(value any) (string, error) {
		t, ok := value.(time.Time)
		if !ok {
			return "", wrongValue(typ, value)
		}
		if typ == TimestampTZOID {
			t = t.UTC()
		}
		return t.Format(layout), nil
	}
}
