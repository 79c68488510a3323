package mines

import "errors"

var (
	ErrInvalidConfiguration = errors.New("mine count must be positive and less than grid size")
	ErrInvalidIndex         = errors.New("cell index out of range")
)

type AssertionError struct {
	message string
}

// [AssertionError] implements [error]
func (e AssertionError) Error() string {
	return e.message
}
