package order

import "errors"

var (
	// ErrOrderNotFound is returned when an order cannot be found
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidUserID is returned when the user ID is invalid
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrMissingOrderID is returned when the external order ID is empty
	ErrMissingOrderID = errors.New("order ID is required")

	// ErrNegativeAmount is returned when order amount is negative
	ErrNegativeAmount = errors.New("order amount cannot be negative")

	// ErrZeroAmount is returned when order amount is zero
	ErrZeroAmount = errors.New("order amount cannot be zero")

	// ErrMissingCurrency is returned when currency is not specified
	ErrMissingCurrency = errors.New("order currency is required")

	// ErrAmountTooLarge is returned when the amount exceeds the configured maximum
	ErrAmountTooLarge = errors.New("order amount exceeds maximum")

	// ErrDuplicateOrder is returned when the same (user, order) is recorded twice
	ErrDuplicateOrder = errors.New("order already recorded")
)
