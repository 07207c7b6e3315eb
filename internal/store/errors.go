package store

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyConverted  = errors.New("quote already converted into a sale")
	ErrQuoteNotApproved  = errors.New("quote is not approved")
	ErrSaleCancelled     = errors.New("sale is cancelled")
	ErrInvalidMovement   = errors.New("invalid stock movement")
	ErrDuplicate         = errors.New("name already in use")
)
