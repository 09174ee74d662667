// This file defines the opaque identity scheme and display projections.
// Identities are owned by the identity directory; the core only reads them.
package domain

import "regexp"

// identityPattern is the syntactic scheme for opaque user identifiers.
// The directory owns the id space; the core only checks the shape.
var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidIdentity reports whether id is a syntactically valid identity reference.
func ValidIdentity(id string) bool {
	return identityPattern.MatchString(id)
}

// Profile is the read-only display projection of a user identity.
type Profile struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}
