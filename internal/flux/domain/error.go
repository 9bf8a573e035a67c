package domain

import "errors"

var (
	ErrFluxNotFound = errors.New("flux not found")
	ErrEmptyBody    = errors.New("flux body is empty")
	ErrBodyTooLong  = errors.New("flux body exceeds maximum length")
	ErrBadReplyTo   = errors.New("reply target does not exist")
	ErrBadCursor    = errors.New("malformed page cursor")
)
