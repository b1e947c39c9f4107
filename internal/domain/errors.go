package domain

import "errors"

var (
	ErrFetch        = errors.New("backend unavailable")
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrAuth         = errors.New("authentication required")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("already exists")
)
