package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Number is the closed set of trial result types.
type Number interface {
	~int64 | ~float64
}

// ResultKind names the numeric type a variant records.
type ResultKind string

// Supported result kinds.
const (
	ResultKindInteger ResultKind = "integer"
	ResultKindFloat   ResultKind = "float"
)

// ResultCodec is the parse/format pair for one numeric kind. Format output is
// locale independent and Parse(Format(v)) == v for every representable v.
type ResultCodec[R Number] struct {
	Kind   ResultKind
	Parse  func(s string) (R, error)
	Format func(v R) string
}

// IntegerResult encodes int64 results in base 10.
var IntegerResult = ResultCodec[int64]{
	Kind:   ResultKindInteger,
	Parse:  parseInteger,
	Format: formatInteger,
}

// FloatResult encodes float64 results with the shortest representation that
// parses back to the same bits, so NaN, +Inf, -Inf and -0 all survive.
var FloatResult = ResultCodec[float64]{
	Kind:   ResultKindFloat,
	Parse:  parseFloat,
	Format: formatFloat,
}

func parseInteger(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 64-bit integer: %v", ErrMalformedResult, s, err)
	}
	return v, nil
}

func formatInteger(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 64-bit float: %v", ErrMalformedResult, s, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
