package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrRoleAlreadyGranted = errors.New("role already granted")

	ErrLinkNotFound = errors.New("magic link not found")
	ErrLinkConsumed = errors.New("magic link already consumed")
	ErrLinkExpired  = errors.New("magic link expired")
	ErrEmailSend    = errors.New("magic link email send failed")
	ErrInvalidEmail = errors.New("invalid email address")

	ErrInvalidSignature = errors.New("invalid session signature")
	ErrSessionExpired   = errors.New("session expired")
	ErrMalformedToken   = errors.New("malformed session token")
	ErrSubjectNotFound  = errors.New("session subject not found")

	ErrForbidden = errors.New("forbidden")
)
