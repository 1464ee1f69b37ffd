// Package identity turns verified token claims into the caller identity used for
// authorization decisions.
package identity

import (
	"errors"
	"sort"
	"strings"
)

const SubjectClaim = "sub"
const GroupsClaim = "cognito:groups"

var ErrMissingSubject = errors.New("claims do not contain a subject")

// Groups is the set of group names a caller belongs to.
type Groups map[string]struct{}

func (g Groups) Contains(group string) bool {
	_, ok := g[group]
	return ok
}

// Sorted returns the group names in lexical order.
func (g Groups) Sorted() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Identity struct {
	Subject string
	Groups  Groups
}

// Extract reads the subject and group memberships out of verified claims.
// The subject is opaque and kept as is; a blank subject is rejected.
// Malformed group claims never fail the extraction; they yield an empty set.
func Extract(claims map[string]any) (*Identity, error) {
	subject, ok := claims[SubjectClaim].(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return nil, ErrMissingSubject
	}
	return &Identity{
		Subject: subject,
		Groups:  NormalizeGroups(DecodeGroupEncoding(claims[GroupsClaim])),
	}, nil
}
