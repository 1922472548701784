package rules

import (
	"regexp"
	"strings"
	"time"
)

var (
	datePattern     = regexp.MustCompile(`^[0-9]{4}(-[0-9]{2}(-[0-9]{2})?)?$`)
	dateTimePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})$`)
	postalPattern   = regexp.MustCompile(`^[0-9]{5}$`)
)

// dateLayouts maps the length of a FHIR date to its time layout.
var dateLayouts = map[int]string{
	4:  "2006",
	7:  "2006-01",
	10: "2006-01-02",
}

// ValidDate reports whether s is a FHIR date: YYYY, YYYY-MM or YYYY-MM-DD,
// naming an existing calendar day.
func ValidDate(s string) bool {
	_, ok := parseDate(s)
	return ok
}

// ValidDateTime reports whether s is a FHIR dateTime: a FHIR date, or a
// full timestamp with seconds, optional fraction and a zone (Z or ±hh:mm).
func ValidDateTime(s string) bool {
	_, ok := ParseDateTime(s)
	return ok
}

// ParseDateTime parses a FHIR date or dateTime. Partial dates yield the
// start of the period they denote, in UTC.
func ParseDateTime(s string) (time.Time, bool) {
	if t, ok := parseDate(s); ok {
		return t, true
	}
	if !dateTimePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.Year() == 0 {
		return time.Time{}, false
	}
	return t, true
}

func parseDate(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) || strings.HasPrefix(s, "0000") {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayouts[len(s)], s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidGermanPostalCode reports whether s is a five digit German postal code.
func ValidGermanPostalCode(s string) bool {
	return postalPattern.MatchString(s)
}

// germanCountries lists address.country values that denote Germany.
var germanCountries = map[string]bool{
	"de":          true,
	"deu":         true,
	"deutschland": true,
	"germany":     true,
}

// IsGermanAddress reports whether an address with the given country is
// subject to the German postal code format. A missing country counts as
// German.
func IsGermanAddress(country string) bool {
	country = strings.TrimSpace(country)
	return country == "" || germanCountries[strings.ToLower(country)]
}
