package db

import "errors"

// Not found
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrClaimNotFound   = errors.New("claim not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("request not found")
)

// Invalid state
var (
	ErrAlreadyDecided        = errors.New("already decided")
	ErrEquipmentNotAvailable = errors.New("equipment not available")
	ErrOutOfStock            = errors.New("item out of stock")
	ErrNotInUse              = errors.New("item is not checked-out equipment")
	ErrReturnAlreadyPending  = errors.New("return already requested")
	ErrReturnNotPending      = errors.New("return not pending")
	ErrRequestClosed         = errors.New("request is closed")
	ErrInviteInvalid         = errors.New("invalid or expired invite")
	ErrItemCheckedOut        = errors.New("item is checked out")
)

// Insufficient resource
var (
	ErrInsufficientUnits = errors.New("insufficient available units")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Validation
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidStatus   = errors.New("invalid status for category")
	ErrInvalidRole     = errors.New("invalid role")
	ErrMissingName     = errors.New("name is required")
)

// Permission
var ErrNotClaimant = errors.New("item is not held by this user")

func IsNotFound(err error) bool {
	return anyIs(err, ErrItemNotFound, ErrClaimNotFound, ErrUserNotFound, ErrRequestNotFound)
}

// IsConflict covers invalid-state and insufficient-resource failures.
func IsConflict(err error) bool {
	return anyIs(err, ErrAlreadyDecided, ErrEquipmentNotAvailable, ErrOutOfStock, ErrNotInUse,
		ErrReturnAlreadyPending, ErrReturnNotPending, ErrRequestClosed, ErrItemCheckedOut,
		ErrInsufficientUnits, ErrInsufficientStock)
}

func IsValidation(err error) bool {
	return anyIs(err, ErrInvalidQuantity, ErrInvalidCategory, ErrInvalidStatus, ErrInvalidRole, ErrMissingName)
}

func IsForbidden(err error) bool {
	return anyIs(err, ErrNotClaimant, ErrInviteInvalid)
}

func anyIs(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
