package config

import (
	"os"
	"strings"
)

// StrictDocImmutability hardens document editing: inventory- or
// ledger-affecting documents cannot be edited once posted; they must be
// cancelled and recreated.
//
// Set via env:
// - STRICT_DOC_IMMUTABLE=true
func StrictDocImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_DOC_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
