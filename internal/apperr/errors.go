// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrRejected    = errors.New("rejected file name")
	ErrNotEligible = errors.New("note is not marked for publication")
)
