package textblock

import "errors"

var (
	ErrTitleRequired    = errors.New("text block title required")
	ErrContentRequired  = errors.New("text block content required")
	ErrCategoryRequired = errors.New("text block category required")
	ErrBlockNotFound    = errors.New("text block not found")
	ErrNoFieldsToUpdate = errors.New("no text block fields to update")
)
