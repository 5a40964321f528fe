package adns

import (
	"fmt"
	"strings"
)

// Query is a single outgoing DNS question: one name, one type, identified
// by a 16-bit transaction id unique within the socket it is sent on.
type Query struct {
	ID   uint16
	Name string
	Type RecordType
}

// maxNameLength and maxLabelLength bound a fully-qualified domain name per
// RFC 1035.
const (
	maxNameLength  = 255
	maxLabelLength = 63
)

// normalizeName lowercases name and validates its length and label sizes,
// returning InvalidArgumentError for anything that doesn't fit the wire
// format.
func normalizeName(name string) (string, error) {
	if name == "" {
		return "", InvalidArgumentError{Reason: "empty name"}
	}
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	if len(name) > maxNameLength {
		return "", InvalidArgumentError{Reason: fmt.Sprintf("name %q exceeds %d octets", name, maxNameLength)}
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if len(label) > maxLabelLength {
			return "", InvalidArgumentError{Reason: fmt.Sprintf("label %q exceeds %d octets", label, maxLabelLength)}
		}
	}
	return name, nil
}
