package model

import "errors"

// Error kinds reported by the registry, ledger, marketplace and gate. Callers
// match them with errors.Is; every failed operation leaves the store unchanged.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrCapacity        = errors.New("no primary supply remaining")
	ErrPriceCap        = errors.New("resale price above the event cap")
	ErrNotActive       = errors.New("not active")
	ErrAlreadyVerified = errors.New("ticket already verified")
	ErrUnauthorized    = errors.New("caller not authorized")
	ErrPayment         = errors.New("payment failed")
	ErrConflict        = errors.New("concurrent modification")
)
