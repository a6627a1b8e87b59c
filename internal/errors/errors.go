package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InvalidCardID          ErrorCode = "invalid_card_id"
	InvalidPage            ErrorCode = "invalid_page"
	SameCardTransfer       ErrorCode = "same_card_transfer"
	CardBlocked            ErrorCode = "card_blocked"
	CardNotFound           ErrorCode = "card_not_found"
	UserNotFound           ErrorCode = "user_not_found"
	Forbidden              ErrorCode = "forbidden"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	CryptoFailure          ErrorCode = "crypto_failure"
	Unauthorized           ErrorCode = "unauthorized"
	InvalidCredentials     ErrorCode = "invalid_credentials"
	DuplicateUser          ErrorCode = "duplicate_user"
	CannotBeginTransaction ErrorCode = "cannot_begin_transaction"
	InternalError          ErrorCode = "internal_error"
)

// Kind groups error codes into the categories callers are expected to branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAccess
	KindInsufficientFunds
	KindCrypto
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAccess:
		return "access"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindCrypto:
		return "crypto"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *AppError carrying the same code, so that
// sentinels match copies produced by WithDetails.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e with details attached. The receiver is left
// untouched so predefined errors can be decorated safely.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) Kind() Kind {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidCardID, InvalidPage, SameCardTransfer, CardBlocked:
		return KindValidation
	case CardNotFound, UserNotFound:
		return KindNotFound
	case Forbidden:
		return KindAccess
	case InsufficientFunds:
		return KindInsufficientFunds
	case CryptoFailure:
		return KindCrypto
	case Unauthorized, InvalidCredentials:
		return KindUnauthorized
	case DuplicateUser:
		return KindConflict
	default:
		return KindInternal
	}
}

func (e *AppError) HTTPStatus() int {
	switch e.Kind() {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAccess:
		return http.StatusForbidden
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the kind of the first *AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternal
}

// AsAppError unwraps err into an *AppError, mapping anything else to an
// internal error that does not expose the underlying message.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred")
}

// Predefined errors for common cases
var (
	ErrInvalidInput           = NewAppError(InvalidInput, "invalid input")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive with at most two decimal places")
	ErrInvalidCardID          = NewAppError(InvalidCardID, "card id must be a positive integer")
	ErrInvalidPage            = NewAppError(InvalidPage, "offset must not be negative")
	ErrSameCardTransfer       = NewAppError(SameCardTransfer, "cannot transfer to the same card")
	ErrCardBlocked            = NewAppError(CardBlocked, "card is blocked")
	ErrCardNotFound           = NewAppError(CardNotFound, "card not found")
	ErrUserNotFound           = NewAppError(UserNotFound, "user not found")
	ErrForbidden              = NewAppError(Forbidden, "access to this resource is forbidden")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient funds")
	ErrCrypto                 = NewAppError(CryptoFailure, "card data could not be processed")
	ErrUnauthorized           = NewAppError(Unauthorized, "authentication required")
	ErrInvalidCredentials     = NewAppError(InvalidCredentials, "invalid credentials")
	ErrDuplicateUser          = NewAppError(DuplicateUser, "username already taken")
	ErrCannotBeginTransaction = NewAppError(CannotBeginTransaction, "store cannot begin a transaction")
)
