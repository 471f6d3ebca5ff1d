package portfolio

import "errors"

// PortfolioError wraps every fault the state machine can surface:
// repository I/O, an invalid fill-decision/open-position mismatch, or a
// missing position where one was expected. A PortfolioError during
// UpdateFromFill is fatal to the trader that produced it — the engine
// only observes this indirectly via the stopped-notifier.
type PortfolioError struct {
	Op  string
	Err error
}

func (e *PortfolioError) Error() string { return "portfolio: " + e.Op + ": " + e.Err.Error() }
func (e *PortfolioError) Unwrap() error { return e.Err }

func newPortfolioError(op string, err error) error {
	return &PortfolioError{Op: op, Err: err}
}

// ErrDecisionMismatch is returned by UpdateFromFill when a fill's
// decision does not match the state of the open position for its
// market: opening a direction again while one is already open, or
// opening the opposite direction without first closing. The portfolio
// does not attempt to net positions in a single market — this is a
// design error by the caller, not a recoverable condition.
var ErrDecisionMismatch = errors.New("fill decision does not match open position state")
