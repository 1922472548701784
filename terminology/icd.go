package terminology

import (
	"regexp"
	"strings"
)

// ICD10GMSystem is the canonical URL of the ICD-10-GM code system as used
// by the MII Diagnose module.
const ICD10GMSystem = "http://fhir.de/CodeSystem/bfarm/icd-10-gm"

// icd10gmMarker identifies ICD-10-GM systems independent of the publisher
// path (bfarm, dimdi).
const icd10gmMarker = "icd-10-gm"

var icd10gmPattern = regexp.MustCompile(`^[A-Z][0-9]{2}(\.[A-Z0-9]{1,2})?$`)

// IsICD10GM reports whether a coding system URL denotes ICD-10-GM.
func IsICD10GM(system string) bool {
	return strings.Contains(strings.ToLower(system), icd10gmMarker)
}

// ValidICD10GMCode reports whether code has the shape of an ICD-10-GM code:
// a letter, two digits and an optional subcategory of one or two
// characters after a dot, e.g. "E10" or "E10.90".
func ValidICD10GMCode(code string) bool {
	return icd10gmPattern.MatchString(code)
}
