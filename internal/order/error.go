package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidItem       = errors.New("invalid order item")
	ErrInvalidTaxRate    = errors.New("invalid tax rate")
	ErrUnauthorized      = errors.New("unauthorized")
)
