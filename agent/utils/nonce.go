package utils

import (
	"strings"

	"github.com/google/uuid"
)

// UUID generates new random UUID and returns it as string.
func UUID() string {
	return uuid.New().String()
}

// GeneratedID returns an UUID which first group is zeroed. The form tells a
// reader that the ID wasn't given by the message's sender but by us.
func GeneratedID() string {
	id := UUID()
	idx := strings.IndexByte(id, '-')
	return "00000000" + id[idx:]
}

// IsGeneratedID tells if the id was made by GeneratedID.
func IsGeneratedID(id string) bool {
	return strings.HasPrefix(id, "00000000-")
}
