package optiongrid

import "errors"

var (
	// ErrMissingTemplate means the page has no element with the template id.
	ErrMissingTemplate = errors.New("optiongrid: template element not found")
	// ErrEmptyTemplate means the row template is blank or renders no element.
	ErrEmptyTemplate = errors.New("optiongrid: row template produces no element")
	// ErrMissingContainer means no element matches the container selector.
	ErrMissingContainer = errors.New("optiongrid: grid container not found")
	// ErrMissingControl means the page has no add control.
	ErrMissingControl = errors.New("optiongrid: add control not found")
	// ErrNotInitialized is returned by AddOption before Initialize succeeded.
	ErrNotInitialized = errors.New("optiongrid: appender not initialized")
	// ErrNoCells is returned under FallbackError when the grid is empty.
	ErrNoCells = errors.New("optiongrid: grid has no cells")
)
