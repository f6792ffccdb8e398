package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	ErrFollowSelf     = fmt.Errorf("%w: cannot follow self", ErrInvalidOperation)
	ErrBadPage        = fmt.Errorf("%w: page and page_size must be positive", ErrInvalidArgument)
	ErrPageOutOfRange = fmt.Errorf("%w: page out of range", ErrInvalidArgument)
	ErrBadCursor      = fmt.Errorf("%w: malformed cursor", ErrInvalidArgument)
)
