// Package policy holds the only authorization rule of the system: a caller
// may touch a resource iff it owns it.
package policy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Subject is anything that can name the authenticated principal.
type Subject interface {
	SubjectID() string
}

// SubjectString adapts a bare identifier.
type SubjectString string

func (s SubjectString) SubjectID() string { return string(s) }

// SubjectFromMap adapts a decoded claims map, looking at user_id, id and sub
// in that order.
func SubjectFromMap(m map[string]any) Subject {
	for _, k := range []string{"user_id", "id", "sub"} {
		if v, ok := m[k]; ok && v != nil {
			return SubjectString(fmt.Sprint(v))
		}
	}
	return SubjectString("")
}

// Normalize maps an identifier to its comparison form: the canonical
// lower-case UUID when it parses as one, the trimmed string otherwise.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

// IsCrossOwnerAccess reports whether subject is NOT the owner identified by
// ownerID. A nil or empty subject never owns anything.
func IsCrossOwnerAccess(subject Subject, ownerID string) bool {
	if subject == nil {
		return true
	}
	sid := Normalize(subject.SubjectID())
	if sid == "" {
		return true
	}
	return sid != Normalize(ownerID)
}
