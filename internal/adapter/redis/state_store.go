package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/impact-snapshot/internal/domain"
	apperrors "github.com/pscheid92/impact-snapshot/internal/platform/errors"
)

const statusKey = "impact:status"

// StateStore keeps the status in a single Redis key so every instance shares it.
// A missing key reads as healthy.
type StateStore struct {
	rdb *goredis.Client
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(rdb *goredis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

func (s *StateStore) Status(ctx context.Context) (domain.Status, error) {
	raw, err := s.rdb.Get(ctx, statusKey).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.StatusHealthy, nil
	}
	if err != nil {
		return "", apperrors.ExternalError("failed to read status from redis", err)
	}

	status, err := domain.ParseStatus(raw)
	if err != nil {
		return "", apperrors.InternalError(fmt.Sprintf("corrupt status %q in redis", raw), err)
	}
	return status, nil
}

func (s *StateStore) SetStatus(ctx context.Context, status domain.Status) error {
	if err := s.rdb.Set(ctx, statusKey, string(status), 0).Err(); err != nil {
		return apperrors.ExternalError("failed to write status to redis", err)
	}
	return nil
}
