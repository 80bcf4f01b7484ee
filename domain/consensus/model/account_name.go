package model

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// MinAccountNameLength is the length of the shortest valid account name.
	MinAccountNameLength = 3

	// MaxAccountNameLength is the length of the longest valid account name.
	MaxAccountNameLength = 16
)

// ValidateAccountName checks that name is a valid account name: dot
// separated segments of at least three characters, each starting with a
// lowercase letter, ending with a lowercase letter or a digit, and made of
// lowercase letters, digits and dashes.
func ValidateAccountName(name string) error {
	if len(name) < MinAccountNameLength || len(name) > MaxAccountNameLength {
		return errors.Errorf("account name %q must be between %d and %d characters long",
			name, MinAccountNameLength, MaxAccountNameLength)
	}
	for _, segment := range strings.Split(name, ".") {
		if len(segment) < MinAccountNameLength {
			return errors.Errorf("account name %q has a segment shorter than %d characters",
				name, MinAccountNameLength)
		}
		if !isLowerLetter(segment[0]) {
			return errors.Errorf("account name %q has a segment that does not start with a letter", name)
		}
		last := segment[len(segment)-1]
		if !isLowerLetter(last) && !isDigit(last) {
			return errors.Errorf("account name %q has a segment that does not end with a letter or a digit", name)
		}
		for i := 1; i < len(segment)-1; i++ {
			c := segment[i]
			if !isLowerLetter(c) && !isDigit(c) && c != '-' {
				return errors.Errorf("account name %q contains the invalid character %q", name, c)
			}
		}
	}
	return nil
}

func isLowerLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
