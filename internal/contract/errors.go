package contract

import "errors"

// Messages are returned to callers verbatim.
var (
	ErrInvalidAddress = errors.New("invalid admin address")
	ErrAlreadyExists  = errors.New("Key already taken!")
	ErrPollNotFound   = errors.New("Poll not available!")
	ErrInvalidChoice  = errors.New("Invalid choice!")
)
