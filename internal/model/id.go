package model

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// idPattern matches the 24 hex character identifiers used for every
// domain record.  The same grammar appears in dynamic room names
// (stream-<id>), so identifiers must never change shape.
var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a new 24 hex character identifier generated from 12
// bytes of cryptographically secure random data.
func NewID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; a failure
		// here means the process has no usable entropy source.
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// IsID reports whether s is a well-formed record identifier.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}
