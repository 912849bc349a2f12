package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not the review author")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInFlight           = errors.New("submission already in progress")
	ErrConfirmRequired    = errors.New("confirmation required")
)

// ValidationKind identifies which rule a review input broke. Exactly one
// kind is reported per failed validation (first failing rule wins).
type ValidationKind string

const (
	MissingProperty  ValidationKind = "missing_property"
	RatingOutOfRange ValidationKind = "rating_out_of_range"
	CommentEmpty     ValidationKind = "comment_empty"
	CommentTooShort  ValidationKind = "comment_too_short"
	CommentTooLong   ValidationKind = "comment_too_long"
)

type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(kind ValidationKind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}
