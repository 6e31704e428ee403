package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckoutInFlight rejects a trigger while another intent is between
	// Building and Submitting. The second trigger is dropped, never queued.
	ErrCheckoutInFlight = errors.New("checkout already in progress")

	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError aborts checkout when the final inventory re-check finds a
// line exceeding current availability. The cart is left intact.
type ValidationError struct {
	ProductID string
	Requested int
	Available int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("inventory changed for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// SubmissionError wraps a payment-session creation failure. The cause is for
// logs; callers show users only a generic retryable message.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("payment session creation failed: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }
