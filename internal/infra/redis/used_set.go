package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// UsedSet persists the random policy's drawn IDs so a restart does not repeat questions.
//
//	SADD {prefix}:used {questionID}
type UsedSet struct {
	client *redis.Client
	prefix string
}

func NewUsedSet(client *redis.Client, prefix string) *UsedSet {
	return &UsedSet{client: client, prefix: defaultPrefix(prefix)}
}

func (s *UsedSet) Members(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.client.SMembers(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *UsedSet) Add(ctx context.Context, id string) error {
	return s.client.SAdd(ctx, s.key(), id).Err()
}

func (s *UsedSet) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

func (s *UsedSet) key() string {
	return s.prefix + ":used"
}
