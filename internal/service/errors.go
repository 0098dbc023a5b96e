package service

import "errors"

// Sentinel errors for service layer
var (
	ErrValidation = errors.New("validation error")
	ErrDelivery   = errors.New("delivery error")
)
