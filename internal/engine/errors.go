package engine

import (
	"errors"
	"fmt"
)

var (
	ErrEngineIDRequired  = errors.New("engine builder: engine_id required")
	ErrPortfolioRequired = errors.New("engine builder: portfolio required")
	ErrNoTraders         = errors.New("engine builder: at least one trader required")
)

// EngineError wraps failures the engine returns to its caller. Build is
// the only place that produces one; full command channels and recovered
// trader panics are logged rather than returned.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine: %s: %v", e.Op, e.Err) }
func (e *EngineError) Unwrap() error { return e.Err }

func newEngineError(op string, err error) error { return &EngineError{Op: op, Err: err} }
