package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// Kind groups errors by how callers should surface them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindBusinessRule
	KindConflict
)

// Error is a domain error with a stable code. Sentinels below are compared
// with errors.Is; call sites add detail with fmt.Errorf("%w: ...").
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

var (
	ErrEmptyCart       = newError(KindValidation, "EMPTY_CART", "order must contain at least one item")
	ErrInvalidQuantity = newError(KindValidation, "INVALID_QUANTITY", "quantity must be a positive integer")
	ErrMissingField    = newError(KindValidation, "MISSING_FIELD", "required field is missing")
	ErrInvalidStatus   = newError(KindValidation, "INVALID_STATUS", "unknown sub-order status")

	ErrUserNotFound     = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrProductNotFound  = newError(KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrInvoiceNotFound  = newError(KindNotFound, "INVOICE_NOT_FOUND", "order not found")
	ErrSubOrderNotFound = newError(KindNotFound, "SUB_ORDER_NOT_FOUND", "sub-order not found or not owned by this vendor")
	ErrVendorNotFound   = newError(KindNotFound, "VENDOR_NOT_FOUND", "vendor profile not found")

	ErrForbidden         = newError(KindForbidden, "FORBIDDEN", "access to this resource is forbidden")
	ErrVendorNotApproved = newError(KindForbidden, "VENDOR_NOT_APPROVED", "vendor profile is not approved")

	ErrUnknownProduct           = newError(KindBusinessRule, "UNKNOWN_PRODUCT", "product does not exist")
	ErrInsufficientStock        = newError(KindBusinessRule, "INSUFFICIENT_STOCK", "insufficient stock")
	ErrVendorNotAcceptingOrders = newError(KindBusinessRule, "VENDOR_NOT_ACCEPTING_ORDERS", "vendor is not accepting new orders")
	ErrProductUnavailable       = newError(KindBusinessRule, "PRODUCT_UNAVAILABLE", "product is suspended")
	ErrInvalidTransition        = newError(KindBusinessRule, "INVALID_TRANSITION", "invalid status transition")
	ErrProductSuspended         = newError(KindBusinessRule, "PRODUCT_SUSPENDED", "suspended products cannot be edited")

	ErrVendorAlreadyExists  = newError(KindConflict, "VENDOR_EXISTS", "user already has a vendor profile")
	ErrOptimisticLockFailed = newError(KindConflict, "VERSION_CONFLICT", "optimistic lock failed")
	ErrLockTimeout          = newError(KindConflict, "LOCK_TIMEOUT", "lock timeout")
)
