package catalog

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type castKey struct {
	source, target OID
}

func boolToChar(target OID) CastFunc {
	return func(value any, typmod int32) (any, error) {
		b, ok := value.(bool)
		if !ok {
			return nil, wrongValue(BoolOID, value)
		}
		s := "false"
		if b {
			s = "true"
		}
		return applyCharTypmod(target, s, typmod, true)
	}
}

func intToChar(source, target OID) CastFunc {
	return func(value any, typmod int32) (any, error) {
		v, ok := ToInt64(value)
		if !ok {
			return nil, wrongValue(source, value)
		}
		return applyCharTypmod(target, strconv.FormatInt(v, 10), typmod, true)
	}
}

// CheckIntRange narrows v to the integer type target.
func CheckIntRange(v int64, target OID) (any, error) {
	switch target {
	case Int2OID:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, outOfRange(target, strconv.FormatInt(v, 10))
		}
		return int16(v), nil
	case Int4OID:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, outOfRange(target, strconv.FormatInt(v, 10))
		}
		return int32(v), nil
	case Int8OID:
		return v, nil
	}
	return nil, wrongValue(target, v)
}

func intToInt(source, target OID) CastFunc {
	return func(value any, _ int32) (any, error) {
		v, ok := ToInt64(value)
		if !ok {
			return nil, wrongValue(source, value)
		}
		return CheckIntRange(v, target)
	}
}

func intToNumeric(source OID) CastFunc {
	return func(value any, typmod int32) (any, error) {
		v, ok := ToInt64(value)
		if !ok {
			return nil, wrongValue(source, value)
		}
		return ApplyNumericTypmod(decimal.NewFromInt(v), typmod)
	}
}

func numericToChar(target OID) CastFunc {
	return func(value any, typmod int32) (any, error) {
		s, err := numericOut(value)
		if err != nil {
			return nil, err
		}
		return applyCharTypmod(target, s, typmod, true)
	}
}

func charToChar(target OID) CastFunc {
	return func(value any, typmod int32) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, wrongValue(target, value)
		}
		return applyCharTypmod(target, s, typmod, true)
	}
}

func dateToTimestamp(value any, typmod int32) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return nil, wrongValue(DateOID, value)
	}
	return roundTimestamp(t, typmod), nil
}

func buildCasts() map[castKey]CastFunc {
	casts := make(map[castKey]CastFunc)
	ints := []OID{Int2OID, Int4OID, Int8OID}
	chars := []OID{TextOID, VarcharOID, BPCharOID}

	for _, c := range chars {
		casts[castKey{BoolOID, c}] = boolToChar(c)
		casts[castKey{NumericOID, c}] = numericToChar(c)
		for _, i := range ints {
			casts[castKey{i, c}] = intToChar(i, c)
		}
		for _, src := range chars {
			casts[castKey{src, c}] = charToChar(c)
		}
	}
	for _, src := range ints {
		casts[castKey{src, NumericOID}] = intToNumeric(src)
		for _, dst := range ints {
			if src != dst {
				casts[castKey{src, dst}] = intToInt(src, dst)
			}
		}
	}
	casts[castKey{DateOID, TimestampOID}] = dateToTimestamp
	casts[castKey{DateOID, TimestampTZOID}] = dateToTimestamp
	return casts
}
