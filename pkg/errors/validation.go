package errors

import (
	"regexp"
	"strconv"
)

// partNumberRE matches a part reference: an alphabetic prefix followed by a
// numeric suffix, e.g. "C49", "R101", "Q3".
var partNumberRE = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// ValidatePartNumber checks that ref is a well-formed part reference.
func ValidatePartNumber(ref string) error {
	if ref == "" {
		return New(ErrCodeParsePartNumber, "part number cannot be empty")
	}
	if !partNumberRE.MatchString(ref) {
		return New(ErrCodeParsePartNumber, "invalid part number %q", ref)
	}
	return nil
}

// SplitPartNumber splits a part reference into its alphabetic type prefix and
// numeric suffix, e.g. "C49" -> ("C", 49).
func SplitPartNumber(ref string) (string, int, error) {
	m := partNumberRE.FindStringSubmatch(ref)
	if m == nil {
		return "", 0, New(ErrCodeParsePartNumber, "invalid part number %q", ref)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, Wrap(ErrCodeParsePartNumber, err, "invalid part number %q", ref)
	}
	return m[1], n, nil
}
