package domain

import "errors"

// Article validation errors
var (
	ErrTitleRequired         = errors.New("title is required")
	ErrTitleTooLong          = errors.New("title cannot exceed 200 characters")
	ErrContentRequired       = errors.New("content is required")
	ErrPublishedDateInFuture = errors.New("published date cannot be in the future")
)
