package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNameRequired          = errors.New("template name required")
	ErrBodyRequired          = errors.New("template body required")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrVersionNotFound       = errors.New("template version not found")
	ErrTemplateAlreadyExists = errors.New("template already exists")
	ErrNoFieldsToUpdate      = errors.New("no template fields to update")
)

// InvalidBodyError lists the placeholder tokens of a template body that do
// not exist in the catalog.
type InvalidBodyError struct {
	Tokens []string
}

func (e *InvalidBodyError) Error() string {
	return fmt.Sprintf("template body contains invalid tokens: %s", strings.Join(e.Tokens, ", "))
}

// UnknownRequiredDataError lists required data categories that do not exist
// in the catalog.
type UnknownRequiredDataError struct {
	Categories []string
}

func (e *UnknownRequiredDataError) Error() string {
	return fmt.Sprintf("required data references unknown categories: %s", strings.Join(e.Categories, ", "))
}
