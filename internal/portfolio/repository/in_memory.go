package repository

import (
	"sync"

	"tradecore/internal/portfolio/position"
	"tradecore/internal/statistic"
)

// InMemoryRepository is the default, process-local Repository backend:
// mutex-guarded Go maps, nothing persisted across restarts.
type InMemoryRepository struct {
	mu         sync.Mutex
	open       map[string]position.Position   // position_id -> position
	closed     map[string][]position.Position // engine_id -> closed log
	statistics map[string]statistic.State     // market_id -> state
	balances   map[string]Balance             // engine_id -> balance
}

// NewInMemoryRepository returns an empty InMemoryRepository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		open:       make(map[string]position.Position),
		closed:     make(map[string][]position.Position),
		statistics: make(map[string]statistic.State),
		balances:   make(map[string]Balance),
	}
}

func (r *InMemoryRepository) GetOpenPosition(positionID string) (position.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.open[positionID]
	if !ok {
		return position.Position{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) SetOpenPosition(p position.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[p.PositionID] = p
	return nil
}

func (r *InMemoryRepository) RemoveOpenPosition(positionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, positionID)
	return nil
}

func (r *InMemoryRepository) GetOpenPositions(engineID string, markets []string) ([]position.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(markets))
	for _, m := range markets {
		wanted[m] = true
	}

	var out []position.Position
	for _, p := range r.open {
		if p.EngineID != engineID {
			continue
		}
		if len(wanted) > 0 && !wanted[MarketKey(p.Exchange, p.Symbol)] {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *InMemoryRepository) AppendClosedPosition(engineID string, p position.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[engineID] = append(r.closed[engineID], p)
	return nil
}

func (r *InMemoryRepository) GetClosedPositions(engineID string) ([]position.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]position.Position, len(r.closed[engineID]))
	copy(out, r.closed[engineID])
	return out, nil
}

func (r *InMemoryRepository) GetStatistics(marketID string) (statistic.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statistics[marketID]
	if !ok {
		return statistic.State{}, ErrNotFound
	}
	return st, nil
}

func (r *InMemoryRepository) SetStatistics(marketID string, state statistic.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statistics[marketID] = state
	return nil
}

func (r *InMemoryRepository) GetBalance(engineID string) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[engineID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	return b, nil
}

func (r *InMemoryRepository) SetBalance(engineID string, b Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[engineID] = b
	return nil
}
