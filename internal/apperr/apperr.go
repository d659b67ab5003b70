// Package apperr provides the application error type. All service-layer
// errors use AppError so handlers can emit consistent responses that never
// leak internal details to clients.
package apperr

import "net/http"

// AppError is a structured application error with a stable code, a
// human-readable message, an HTTP status, and an optional internal cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal cause for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError with the same stable code, so wrapped copies
// still compare equal to their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of sentinel carrying internal as its cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage returns a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrUnauthorized   = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Receipt errors. Ownership-scoped lookups that miss report NOT_FOUND,
// never a permission error, so existence is not leaked across users.
var (
	ErrReceiptNotFound   = &AppError{Code: "RECEIPT_NOT_FOUND", Message: "Receipt not found", StatusCode: http.StatusNotFound}
	ErrReceiptProcessing = &AppError{Code: "RECEIPT_PROCESSING", Message: "Receipt is already being processed", StatusCode: http.StatusConflict}
	ErrReceiptCompleted  = &AppError{Code: "RECEIPT_COMPLETED", Message: "Receipt extraction already completed", StatusCode: http.StatusConflict}
	ErrReceiptLimit      = &AppError{Code: "RECEIPT_LIMIT", Message: "Receipt limit exceeded", StatusCode: http.StatusForbidden}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryExists   = &AppError{Code: "CATEGORY_EXISTS", Message: "Category already exists", StatusCode: http.StatusConflict}
)

// Extraction errors.
var (
	ErrExtractionFailed      = &AppError{Code: "EXTRACTION_FAILED", Message: "Failed to extract receipt data", StatusCode: http.StatusBadGateway}
	ErrImageFetchFailed      = &AppError{Code: "IMAGE_FETCH_FAILED", Message: "Failed to fetch receipt image", StatusCode: http.StatusBadGateway}
	ErrUploadFailed          = &AppError{Code: "UPLOAD_FAILED", Message: "Failed to store receipt file", StatusCode: http.StatusBadGateway}
	ErrUnsupportedFileFormat = &AppError{Code: "UNSUPPORTED_FILE_FORMAT", Message: "Unsupported file format", StatusCode: http.StatusBadRequest}
)
