package service

import (
	"errors"
	"fmt"

	"commerce-core/internal/store"
)

// All of these are recoverable by the caller; the core never terminates the
// process on them.
var (
	// ErrInsufficientStock: requested quantity exceeds the available
	// snapshot at reservation time. Never partially fulfilled.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition: requested state change is not in the allowed
	// graph for the order or refund.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyUsed: the coupon was already applied by this user to this
	// order.
	ErrAlreadyUsed = errors.New("coupon already used for this order")

	// ErrLimitExceeded: the coupon's aggregate usage limit is exhausted.
	ErrLimitExceeded = errors.New("coupon usage limit exceeded")

	// ErrCouponNotEligible: the coupon is inactive, outside its validity
	// window, or the order does not meet its minimum amount.
	ErrCouponNotEligible = errors.New("coupon not eligible for this order")

	// ErrOverRefund: requested refund quantity exceeds the remaining
	// refundable balance for an order item.
	ErrOverRefund = errors.New("refund quantity exceeds refundable balance")

	// ErrNotFound: a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation: a uniqueness or referential violation
	// surfaced from the store.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrTransientConflict: transaction-layer conflict retries exhausted.
	ErrTransientConflict = errors.New("transient transaction conflict")

	// ErrInvalidInput: the request failed basic validation.
	ErrInvalidInput = errors.New("invalid input")
)

// mapNotFound converts store-level row absence into ErrNotFound, leaving
// other errors untouched.
func mapNotFound(err error) error {
	if err != nil && store.IsNoRows(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	return err
}

// mapConstraint converts store-level constraint violations into
// ErrConstraintViolation.
func mapConstraint(err error) error {
	if err != nil && (store.IsUniqueViolation(err) || store.IsForeignKeyViolation(err)) {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, err)
	}
	return err
}

// retryOnConflict reruns fn on serialization failures and deadlocks, up to
// retries additional attempts. Only placement and refund resolution use it;
// no retry happens for other error kinds, and exhaustion surfaces
// ErrTransientConflict.
func retryOnConflict(retries int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = fn()
		if err == nil || !store.IsSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTransientConflict, err)
}
