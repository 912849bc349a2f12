package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MinCommentLen = 10
	MaxCommentLen = 500
	MinRating     = 1
	MaxRating     = 5
)

// ValidateForCreate checks a full review submission. Rules run in order and
// the first failure wins, so callers always get a single, specific message.
func ValidateForCreate(in ReviewInput) *ValidationError {
	if in.PropertyID == 0 {
		return validationErr(MissingProperty, "property is required")
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return validationErr(RatingOutOfRange, "rating must be between 1 and 5")
	}
	return validateComment(in.Comment)
}

// ValidateForUpdate checks a partial update against the merged result.
// Rating is only checked when the patch supplies one.
func ValidateForUpdate(patch ReviewPatch, merged Review) *ValidationError {
	if patch.Rating != nil && (*patch.Rating < MinRating || *patch.Rating > MaxRating) {
		return validationErr(RatingOutOfRange, "rating must be between 1 and 5")
	}
	return validateComment(merged.Comment)
}

func validateComment(c string) *ValidationError {
	t := strings.TrimSpace(c)
	if t == "" {
		return validationErr(CommentEmpty, "review comment cannot be empty")
	}
	if utf8.RuneCountInString(t) < MinCommentLen {
		return validationErr(CommentTooShort, "review must be at least 10 characters")
	}
	if utf8.RuneCountInString(t) > MaxCommentLen {
		return validationErr(CommentTooLong, "review must be at most 500 characters")
	}
	return nil
}
