package event

import "errors"

// ErrBuilderIncomplete is returned by a builder's Build method when a
// required field was never set.
var ErrBuilderIncomplete = errors.New("builder incomplete")
