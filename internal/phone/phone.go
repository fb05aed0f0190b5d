// Package phone normalises contact numbers to E.164.
package phone

import (
	"errors"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "US"

var ErrInvalid = errors.New("must be a valid phone number")

// Normalize returns raw in E.164 form. Numbers without a leading "+" are read
// as national numbers of region.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}
	// phonenumbers accepts vanity letters; contact numbers must not carry them.
	for _, r := range raw {
		if unicode.IsLetter(r) || r == '@' {
			return "", ErrInvalid
		}
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalid
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeOptional is Normalize for fields that may be left blank.
func NormalizeOptional(raw, region string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return Normalize(raw, region)
}
