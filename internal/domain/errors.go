package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound           = errors.New("domain: not found")
	ErrConflict           = errors.New("domain: version conflict")
	ErrIllegalTransition  = errors.New("domain: illegal state transition")
	ErrStorageUnavailable = errors.New("domain: storage unavailable")
)
