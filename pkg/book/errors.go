package book

import "errors"

// Errors
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOrderExists      = errors.New("order exists")
	ErrNonexistentOrder = errors.New("nonexistent order")
	ErrEmptySide        = errors.New("no liquidity on side")
	ErrCrossedBook      = errors.New("crossed book")
)
