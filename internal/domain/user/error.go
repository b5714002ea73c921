package user

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidAuth  = errors.New("invalid credentials")
	ErrInvalidInput = errors.New("invalid input")
	ErrLoginTaken   = errors.New("login already taken")
	ErrClosed       = errors.New("registration is closed")
)
