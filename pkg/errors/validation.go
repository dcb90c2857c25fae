package errors

import (
	"strings"
	"unicode"
)

// ValidateID validates a sequence or bin identifier.
// Identifiers come straight out of user-supplied tables, so the rules are
// intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No whitespace (would break any tabular round-trip)
//   - Maximum length of 256 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeConfiguration, "identifier cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeConfiguration, "identifier too long (max 256 characters): %q", id[:32]+"...")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeConfiguration, "identifier %q contains control characters", id)
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeConfiguration, "identifier %q contains whitespace", id)
		}
	}

	return nil
}

// ValidateTrackName validates a feature or link track name.
// Track names appear in accessor lookups and serialized output, so they share
// the identifier rules and additionally may not collide with the reserved
// sequence table name.
func ValidateTrackName(name string) error {
	if err := ValidateID(name); err != nil {
		return err
	}

	if strings.EqualFold(name, "seqs") {
		return New(ErrCodeConfiguration, "track name %q is reserved for the sequence table", name)
	}

	return nil
}
