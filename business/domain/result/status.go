package result

import (
	"fmt"
	"strings"
)

// Status represents where an outcome record is in its lifecycle. The stored
// codes are part of the persisted layout: 0, 1 and 3, with 2 unassigned for
// compatibility with older stores.
type Status int

const (
	StatusWaiting Status = 0
	StatusReady   Status = 1
	StatusError   Status = 3
)

var statusNames = map[Status]string{
	StatusWaiting: "waiting",
	StatusReady:   "ready",
	StatusError:   "error",
}

// String implements the stringer interface.
func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "UNKNOWN"
	}
	return name
}

// Terminal reports whether the record can never change again.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// ParseStatus creates a status off of a single string or returns an error if
// the status is invalid.
func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if strings.ToLower(s) == name {
			return status, nil
		}
	}
	return Status(-1), fmt.Errorf("%q is invalid status", s)
}
