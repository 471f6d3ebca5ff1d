package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tradecore/internal/portfolio/position"
	"tradecore/internal/statistic"
)

// RedisRepository persists every record as a JSON value under the key
// layout the external-interfaces contract names. Open positions are
// additionally tracked in a per-engine set so GetOpenPositions doesn't
// need a key scan.
type RedisRepository struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisRepository wraps an already-configured *redis.Client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, ctx: context.Background()}
}

func openPositionIndexKey(engineID string) string {
	return fmt.Sprintf("%s_open_positions", engineID)
}

func (r *RedisRepository) GetOpenPosition(positionID string) (position.Position, error) {
	raw, err := r.client.Get(r.ctx, positionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return position.Position{}, ErrNotFound
	}
	if err != nil {
		return position.Position{}, fmt.Errorf("redis get open position: %w", err)
	}
	var p position.Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return position.Position{}, fmt.Errorf("redis decode open position: %w", err)
	}
	return p, nil
}

func (r *RedisRepository) SetOpenPosition(p position.Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis encode open position: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(r.ctx, p.PositionID, raw, 0)
	pipe.SAdd(r.ctx, openPositionIndexKey(p.EngineID), p.PositionID)
	_, err = pipe.Exec(r.ctx)
	if err != nil {
		return fmt.Errorf("redis set open position: %w", err)
	}
	return nil
}

func (r *RedisRepository) RemoveOpenPosition(positionID string) error {
	p, err := r.GetOpenPosition(positionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(r.ctx, positionID)
	pipe.SRem(r.ctx, openPositionIndexKey(p.EngineID), positionID)
	_, err = pipe.Exec(r.ctx)
	if err != nil {
		return fmt.Errorf("redis remove open position: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetOpenPositions(engineID string, markets []string) ([]position.Position, error) {
	ids, err := r.client.SMembers(r.ctx, openPositionIndexKey(engineID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list open positions: %w", err)
	}

	wanted := make(map[string]bool, len(markets))
	for _, m := range markets {
		wanted[m] = true
	}

	out := make([]position.Position, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetOpenPosition(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(wanted) > 0 && !wanted[MarketKey(p.Exchange, p.Symbol)] {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisRepository) AppendClosedPosition(engineID string, p position.Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis encode closed position: %w", err)
	}
	if err := r.client.RPush(r.ctx, ClosedPositionsKey(engineID), raw).Err(); err != nil {
		return fmt.Errorf("redis append closed position: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetClosedPositions(engineID string) ([]position.Position, error) {
	raws, err := r.client.LRange(r.ctx, ClosedPositionsKey(engineID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list closed positions: %w", err)
	}
	out := make([]position.Position, 0, len(raws))
	for _, raw := range raws {
		var p position.Position
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("redis decode closed position: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisRepository) GetStatistics(marketID string) (statistic.State, error) {
	raw, err := r.client.Get(r.ctx, marketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return statistic.State{}, ErrNotFound
	}
	if err != nil {
		return statistic.State{}, fmt.Errorf("redis get statistics: %w", err)
	}
	var st statistic.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return statistic.State{}, fmt.Errorf("redis decode statistics: %w", err)
	}
	return st, nil
}

func (r *RedisRepository) SetStatistics(marketID string, state statistic.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis encode statistics: %w", err)
	}
	if err := r.client.Set(r.ctx, marketID, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set statistics: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetBalance(engineID string) (Balance, error) {
	raw, err := r.client.Get(r.ctx, BalanceKey(engineID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, fmt.Errorf("redis get balance: %w", err)
	}
	var b Balance
	if err := json.Unmarshal(raw, &b); err != nil {
		return Balance{}, fmt.Errorf("redis decode balance: %w", err)
	}
	return b, nil
}

func (r *RedisRepository) SetBalance(engineID string, b Balance) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis encode balance: %w", err)
	}
	if err := r.client.Set(r.ctx, BalanceKey(engineID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set balance: %w", err)
	}
	return nil
}
