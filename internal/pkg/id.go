package pkg

import "github.com/google/uuid"

// GenerateNewSessionID - generates a new unique session identifier.
func GenerateNewSessionID() string {
	return uuid.NewString()
}

// IsSessionID - reports whether id looks like an identifier issued by GenerateNewSessionID.
func IsSessionID(id string) bool {
	return uuid.Validate(id) == nil
}
