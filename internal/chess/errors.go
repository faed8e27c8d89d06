package chess

import "errors"

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrGameOver           = errors.New("match is over")
	ErrPromotionPending   = errors.New("promotion choice pending")
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrDrawUnavailable    = errors.New("draw not available")
	ErrNotOnClock         = errors.New("color is not on the clock")
	ErrMalformedState     = errors.New("malformed saved state")
	ErrInvariantViolation = errors.New("saved state violates board invariants")
)
