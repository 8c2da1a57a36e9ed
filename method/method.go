// Package method implements the DID value type and the DID methods this agent
// understands: did:key, did:peer (numalgo 0 and 2) and did:sov.
package method

import (
	"strings"
)

type Method int

const (
	Unknown Method = 0 + iota
	Key
	Peer
	Sov
)

var methodNames = [...]string{
	Unknown: "unknown",
	Key:     "key",
	Peer:    "peer",
	Sov:     "sov",
}

func (m Method) String() string {
	if m < Unknown || int(m) >= len(methodNames) {
		return methodNames[Unknown]
	}
	return methodNames[m]
}

// MethodFromString returns Method by its DID method name, e.g. "peer".
func MethodFromString(s string) Method {
	for i, name := range methodNames {
		if name == s {
			return Method(i)
		}
	}
	return Unknown
}

// String returns the method name of the DID string, e.g. "key" for
// did:key:z6Mk... The string doesn't need to be a valid DID, any DID URL will
// do.
func String(did string) string {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) < 3 || parts[0] != "did" {
		return ""
	}
	return parts[1]
}

// Parse splits the DID URI to its method and method specific ID. Fragments and
// queries are dropped.
func Parse(uri string) (m Method, id string, ok bool) {
	uri = stripFragment(uri)
	parts := strings.SplitN(uri, ":", 3)
	if len(parts) < 3 || parts[0] != "did" || parts[2] == "" {
		return Unknown, "", false
	}
	return MethodFromString(parts[1]), parts[2], true
}

func stripFragment(uri string) string {
	if i := strings.IndexAny(uri, "#?"); i >= 0 {
		return uri[:i]
	}
	return uri
}
