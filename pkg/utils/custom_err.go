package utils

import "errors"

var (
	ErrInvalidPageSize  = errors.New("invalid page size parameter")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrHistoryDisabled  = errors.New("chat history is not configured")
	ErrDatabaseError    = errors.New("database error")
	ErrForbidden        = errors.New("forbidden")
)
