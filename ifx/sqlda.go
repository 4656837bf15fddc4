package ifx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Display formats produced by the descriptor area accessors.
const (
	// DateFormatISO corresponds to DBDATE=Y4MD-.
	DateFormatISO = "2006-01-02"
	// DateFormatMDY corresponds to DBDATE=MDY4/.
	DateFormatMDY = "01/02/2006"
	// DateTimeFormat is the ANSI form of DATETIME YEAR TO FRACTION(5).
	DateTimeFormat = "2006-01-02 15:04:05.00000"
)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	DateFormatISO,
}

// DescriptorArea is an in-memory statement descriptor area: the attribute
// descriptors, the current row's values and indicators, and the large-object
// locator buffers. It is mutated in place by every Load and must not be
// shared between concurrent fetches.
type DescriptorArea struct {
	attrs      []AttrDef
	values     []any
	locators   [][]byte
	dateFormat string
	radix      byte
	unwinds    int
}

// AreaOption configures a DescriptorArea.
type AreaOption func(*DescriptorArea)

// WithDateFormat sets the layout DateAsString formats dates with.
func WithDateFormat(layout string) AreaOption {
	return func(a *DescriptorArea) { a.dateFormat = layout }
}

// WithDecimalRadix sets the radix character DecimalAsString emits, as a
// remote client running with a non-C numeric locale would.
func WithDecimalRadix(r byte) AreaOption {
	return func(a *DescriptorArea) { a.radix = r }
}

// NewDescriptorArea allocates a descriptor area for the described attributes.
// All values start out NULL.
func NewDescriptorArea(attrs []AttrDef, opts ...AreaOption) *DescriptorArea {
	a := &DescriptorArea{
		attrs:      make([]AttrDef, len(attrs)),
		values:     make([]any, len(attrs)),
		locators:   make([][]byte, len(attrs)),
		dateFormat: DateFormatISO,
		radix:      '.',
	}
	copy(a.attrs, attrs)
	for i := range a.attrs {
		a.attrs[i].Ordinal = i
		a.attrs[i].Valid = true
		a.attrs[i].Indicator = IndicatorNull
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NumAttrs implements Fetcher.
func (a *DescriptorArea) NumAttrs() int {
	return len(a.attrs)
}

// Attr implements Fetcher. Returns nil for positions out of range.
func (a *DescriptorArea) Attr(pos int) *AttrDef {
	if pos < 0 || pos >= len(a.attrs) {
		return nil
	}
	return &a.attrs[pos]
}

// Attrs returns a copy of the attribute descriptors.
func (a *DescriptorArea) Attrs() []AttrDef {
	out := make([]AttrDef, len(a.attrs))
	copy(out, a.attrs)
	return out
}

// Load stores a fetched row. nil values are NULL. Large-object buffers are
// overwritten in place, invalidating slices handed out for the previous row.
func (a *DescriptorArea) Load(row []any) error {
	if len(row) != len(a.attrs) {
		return fmt.Errorf("row has %d values, descriptor area has %d attributes", len(row), len(a.attrs))
	}
	for i, v := range row {
		attr := &a.attrs[i]
		attr.Valid = true
		if v == nil {
			attr.Indicator = IndicatorNull
			a.values[i] = nil
			continue
		}
		nv, err := a.normalize(i, v)
		if err != nil {
			return fmt.Errorf("column %q (%s): %w", attr.Name, attr.Kind, err)
		}
		attr.Indicator = IndicatorNotNull
		a.values[i] = nv
	}
	return nil
}

// Values returns the staged values of the write path; NULL positions are nil.
func (a *DescriptorArea) Values() []any {
	out := make([]any, len(a.values))
	for i, v := range a.values {
		if a.attrs[i].Indicator == IndicatorNull {
			continue
		}
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		out[i] = v
	}
	return out
}

// Reset sets every value to NULL.
func (a *DescriptorArea) Reset() {
	for i := range a.attrs {
		a.attrs[i].Indicator = IndicatorNull
		a.attrs[i].Valid = true
		a.values[i] = nil
	}
}

// RewindCallstack implements Unwinder.
func (a *DescriptorArea) RewindCallstack() {
	a.unwinds++
}

// Unwinds returns how often the call stack was rewound.
func (a *DescriptorArea) Unwinds() int {
	return a.unwinds
}

func (a *DescriptorArea) normalize(pos int, v any) (any, error) {
	switch k := a.attrs[pos].Kind; {
	case k == KindSmallInt:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("value %d out of range for SMALLINT", n)
		}
		return int16(n), nil
	case k == KindInteger || k == KindSerial:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d out of range for INTEGER", n)
		}
		return int32(n), nil
	case k.IsWideInteger():
		return toInt64(v)
	case k == KindDecimal:
		return toDecimal(v)
	case k == KindDate, k == KindDateTime:
		return toTime(v)
	case k.IsCharacter():
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case k.IsLargeObject():
		var b []byte
		switch s := v.(type) {
		case string:
			b = []byte(s)
		case []byte:
			b = s
		default:
			return nil, fmt.Errorf("unsupported value %T", v)
		}
		a.locators[pos] = append(a.locators[pos][:0], b...)
		return a.locators[pos], nil
	case k == KindBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return b == "t" || b == "1" || strings.EqualFold(b, "true"), nil
		}
		if n, err := toInt64(v); err == nil {
			return n != 0, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range for INT8", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	}
	return 0, fmt.Errorf("unsupported integer value %T", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(d))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(d)))
	case float64:
		return decimal.NewFromFloat(d), nil
	case float32:
		return decimal.NewFromFloat32(d), nil
	case fmt.Stringer:
		return decimal.NewFromString(d.String())
	}
	if n, err := toInt64(v); err == nil {
		return decimal.NewFromInt(n), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported decimal value %T", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseDateTime(t)
	case []byte:
		return parseDateTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unsupported date/time value %T", v)
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range append(dateTimeLayouts, DateFormatMDY) {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time literal %q", s)
}

func (a *DescriptorArea) current(pos int, accept func(Kind) bool) (any, bool) {
	if pos < 0 || pos >= len(a.attrs) {
		return nil, false
	}
	attr := &a.attrs[pos]
	if attr.Indicator == IndicatorNull || !accept(attr.Kind) {
		return nil, false
	}
	return a.values[pos], true
}

func writeBuf(buf []byte, s string) (int, bool) {
	if len(s) > len(buf) {
		return len(s), false
	}
	return copy(buf, s), true
}

// Int2 implements Fetcher.
func (a *DescriptorArea) Int2(pos int) (int16, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindSmallInt })
	if !ok {
		return 0, false
	}
	return v.(int16), true
}

// Int4 implements Fetcher. SMALLINT values are widened.
func (a *DescriptorArea) Int4(pos int) (int32, bool) {
	v, ok := a.current(pos, Kind.IsNarrowInteger)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int16:
		return int32(n), true
	case int32:
		return n, true
	}
	return 0, false
}

// Int8AsString implements Fetcher for INT8 and SERIAL8.
func (a *DescriptorArea) Int8AsString(pos int, buf []byte) (int, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindInt8 || k == KindSerial8 })
	if !ok {
		return 0, false
	}
	return writeBuf(buf, strconv.FormatInt(v.(int64), 10))
}

// BigIntAsString implements Fetcher for BIGINT.
func (a *DescriptorArea) BigIntAsString(pos int, buf []byte) (int, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindBigInt })
	if !ok {
		return 0, false
	}
	return writeBuf(buf, strconv.FormatInt(v.(int64), 10))
}

// DecimalAsString implements Fetcher.
func (a *DescriptorArea) DecimalAsString(pos int, buf []byte) (int, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindDecimal })
	if !ok {
		return 0, false
	}
	s := v.(decimal.Decimal).String()
	if a.radix != '.' {
		s = strings.Replace(s, ".", string(a.radix), 1)
	}
	return writeBuf(buf, s)
}

// DateAsString implements Fetcher. Character values are passed through.
func (a *DescriptorArea) DateAsString(pos int, buf []byte) (int, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindDate || k.IsCharacter() })
	if !ok {
		return 0, false
	}
	if s, isString := v.(string); isString {
		return writeBuf(buf, strings.TrimRight(s, " "))
	}
	return writeBuf(buf, v.(time.Time).Format(a.dateFormat))
}

// DateTimeAsString implements Fetcher. Character values are passed through.
func (a *DescriptorArea) DateTimeAsString(pos int, buf []byte) (int, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindDateTime || k.IsCharacter() })
	if !ok {
		return 0, false
	}
	if s, isString := v.(string); isString {
		return writeBuf(buf, strings.TrimRight(s, " "))
	}
	return writeBuf(buf, v.(time.Time).Format(DateTimeFormat))
}

// Text implements Fetcher for inline character kinds.
func (a *DescriptorArea) Text(pos int) (string, bool) {
	v, ok := a.current(pos, Kind.IsCharacter)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// LocatorBytes implements Fetcher for TEXT and BYTE.
func (a *DescriptorArea) LocatorBytes(pos int) ([]byte, bool) {
	v, ok := a.current(pos, Kind.IsLargeObject)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Bool implements Fetcher.
func (a *DescriptorArea) Bool(pos int) (bool, bool) {
	v, ok := a.current(pos, func(k Kind) bool { return k == KindBoolean })
	if !ok {
		return false, false
	}
	return v.(bool), true
}

func (a *DescriptorArea) slot(pos int, accept func(Kind) bool) (*AttrDef, error) {
	attr := a.Attr(pos)
	if attr == nil {
		return nil, fmt.Errorf("%w: position %d", ErrNoSuchAttr, pos)
	}
	if !accept(attr.Kind) {
		return nil, fmt.Errorf("%w: attribute %q is %s", ErrKindMismatch, attr.Name, attr.Kind)
	}
	return attr, nil
}

func (a *DescriptorArea) set(pos int, accept func(Kind) bool, v any) error {
	attr, err := a.slot(pos, accept)
	if err != nil {
		return err
	}
	if attr.Indicator == IndicatorNull {
		a.values[pos] = nil
		return nil
	}
	a.values[pos] = v
	return nil
}

// SetIndicator implements Binder.
func (a *DescriptorArea) SetIndicator(pos int, ind Indicator) {
	if attr := a.Attr(pos); attr != nil {
		attr.Indicator = ind
		if ind == IndicatorNull {
			a.values[pos] = nil
		}
	}
}

// SetInt2 implements Binder.
func (a *DescriptorArea) SetInt2(pos int, v int16) error {
	return a.set(pos, func(k Kind) bool { return k == KindSmallInt }, v)
}

// SetInteger implements Binder.
func (a *DescriptorArea) SetInteger(pos int, v int32) error {
	return a.set(pos, func(k Kind) bool { return k == KindInteger || k == KindSerial }, v)
}

func (a *DescriptorArea) setWide(pos int, accept func(Kind) bool, text string) error {
	if _, err := a.slot(pos, accept); err != nil {
		return err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid INT8 literal %q: %w", text, err)
	}
	return a.set(pos, accept, n)
}

// SetInt8 implements Binder for INT8 and SERIAL8.
func (a *DescriptorArea) SetInt8(pos int, text string) error {
	return a.setWide(pos, func(k Kind) bool { return k == KindInt8 || k == KindSerial8 }, text)
}

// SetBigInt implements Binder for BIGINT.
func (a *DescriptorArea) SetBigInt(pos int, text string) error {
	return a.setWide(pos, func(k Kind) bool { return k == KindBigInt }, text)
}

// SetDecimal implements Binder.
func (a *DescriptorArea) SetDecimal(pos int, text string) error {
	accept := func(k Kind) bool { return k == KindDecimal }
	if _, err := a.slot(pos, accept); err != nil {
		return err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("invalid DECIMAL literal %q: %w", text, err)
	}
	return a.set(pos, accept, d)
}

func (a *DescriptorArea) setTime(pos int, kind Kind, text string) error {
	accept := func(k Kind) bool { return k == kind }
	if _, err := a.slot(pos, accept); err != nil {
		return err
	}
	t, err := parseDateTime(text)
	if err != nil {
		return err
	}
	return a.set(pos, accept, t)
}

// SetDate implements Binder.
func (a *DescriptorArea) SetDate(pos int, text string) error {
	return a.setTime(pos, KindDate, text)
}

// SetDateTime implements Binder.
func (a *DescriptorArea) SetDateTime(pos int, text string) error {
	return a.setTime(pos, KindDateTime, text)
}

// SetText implements Binder for character kinds and TEXT.
func (a *DescriptorArea) SetText(pos int, text string) error {
	attr, err := a.slot(pos, func(k Kind) bool { return k.IsCharacter() || k == KindText })
	if err != nil {
		return err
	}
	if attr.Kind == KindText {
		return a.SetBytes(pos, []byte(text))
	}
	return a.set(pos, Kind.IsCharacter, text)
}

// SetBytes implements Binder for TEXT and BYTE.
func (a *DescriptorArea) SetBytes(pos int, b []byte) error {
	if _, err := a.slot(pos, Kind.IsLargeObject); err != nil {
		return err
	}
	a.locators[pos] = append(a.locators[pos][:0], b...)
	return a.set(pos, Kind.IsLargeObject, a.locators[pos])
}

// SetBool implements Binder.
func (a *DescriptorArea) SetBool(pos int, v bool) error {
	return a.set(pos, func(k Kind) bool { return k == KindBoolean }, v)
}
