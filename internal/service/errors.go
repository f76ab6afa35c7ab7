package service

import "errors"

var (
	ErrNotFound           = errors.New("shop not found")
	ErrForbidden          = errors.New("only the shop's creator may change it")
	ErrInvalidRadius      = errors.New("radius must be a positive number of kilometers")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
