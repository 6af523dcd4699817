package favorites

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/cryptodesk-be/internal/models"
)

// Column limits for the snapshot fields.
const (
	pricePlaces     = models.PricePlaces
	priceIntDigits  = 12
	changePlaces    = models.ChangePlaces
	changeIntDigits = 8

	// Inputs past these bounds are rejected or zeroed before any rescaling.
	maxNumberLength = 64
	maxMagnitude    = 20
	minMagnitude    = -30
)

var (
	errNotNumeric = errors.New("not a number")
	errTooLarge   = errors.New("too many integer digits")
	errOutOfRange = errors.New("out of int64 range")
	errTooLong    = errors.New("numeric text too long")

	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// parseNumber reads a JSON number or numeric string. Absent, null and blank
// values report present=false.
func parseNumber(raw json.RawMessage) (d decimal.Decimal, present bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Decimal{}, false, nil
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Decimal{}, true, errNotNumeric
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return decimal.Decimal{}, false, nil
		}
	}

	if len(text) > maxNumberLength {
		return decimal.Decimal{}, true, fmt.Errorf("%w: %d bytes", errTooLong, len(text))
	}
	d, err = decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, true, fmt.Errorf("%w: %q", errNotNumeric, text)
	}
	return bounded(d)
}

// bounded keeps the exponent small. Values with more than maxMagnitude
// integer digits are too large for every column; values below
// 10^minMagnitude round to zero at every column scale.
func bounded(d decimal.Decimal) (decimal.Decimal, bool, error) {
	if d.IsZero() {
		return decimal.Zero, true, nil
	}
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	switch {
	case magnitude > maxMagnitude:
		return decimal.Decimal{}, true, fmt.Errorf("%w: about 10^%d", errTooLarge, magnitude)
	case magnitude < minMagnitude:
		return decimal.Zero, true, nil
	}
	return d, true, nil
}

// coerceDecimal rounds half away from zero to places and rejects values that
// need more than intDigits digits before the point.
func coerceDecimal(raw json.RawMessage, places int32, intDigits int) (decimal.NullDecimal, error) {
	d, present, err := parseNumber(raw)
	if err != nil || !present {
		return decimal.NullDecimal{}, err
	}
	d = d.Round(places)
	limit := decimal.New(1, int32(intDigits))
	if d.Abs().GreaterThanOrEqual(limit) {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s", errTooLarge, d.String())
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// coerceInt64 truncates toward zero.
func coerceInt64(raw json.RawMessage) (*int64, error) {
	d, present, err := parseNumber(raw)
	if err != nil || !present {
		return nil, err
	}
	d = d.Truncate(0)
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return nil, fmt.Errorf("%w: %s", errOutOfRange, d.String())
	}
	v := d.IntPart()
	return &v, nil
}
