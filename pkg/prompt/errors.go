package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrNoForm is returned by NewEditor without a form.
	ErrNoForm = errors.New("prompt: form is required")
)
