// Package parse contains parsing helpers for externally visible identifier
// formats.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParsedOrderNumber is the decomposed form of an order number.
type ParsedOrderNumber struct {
	HotelCode string
	Year      int
	Sequence  int64
}

// orderNumberRe matches "<HotelCode>-<Year>-<Seq>", e.g. "GRD-2026-17".
// Hotel codes are upper-case alphanumerics as stored on the hotel record.
var orderNumberRe = regexp.MustCompile(`^([A-Z0-9]{2,16})-(\d{4})-([1-9]\d*)$`)

// ParseOrderNumber decomposes an order number string, validating its format.
func ParseOrderNumber(number string) (ParsedOrderNumber, error) {
	m := orderNumberRe.FindStringSubmatch(number)
	if m == nil {
		return ParsedOrderNumber{}, fmt.Errorf("invalid order number format: %q", number)
	}

	year, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedOrderNumber{}, fmt.Errorf("invalid year in order number %q: %w", number, err)
	}
	seq, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return ParsedOrderNumber{}, fmt.Errorf("invalid sequence in order number %q: %w", number, err)
	}

	return ParsedOrderNumber{
		HotelCode: m[1],
		Year:      year,
		Sequence:  seq,
	}, nil
}

// IsOrderNumber reports whether the string looks like an order number, used
// by handlers to route lookups by id vs. number.
func IsOrderNumber(s string) bool {
	return orderNumberRe.MatchString(s)
}
