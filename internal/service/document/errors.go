package document

import "errors"

var (
	ErrRunNotFound       = errors.New("workflow run not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidStatus     = errors.New("invalid document status")
	ErrTemplateHasNoBody = errors.New("template has no body to resolve")
)
