package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/pipevine/pkg/api"
)

// RedisStore is a Store backed by Redis.
// It uses a simple key structure:
//
//	<prefix>rec:<pkey>        => JSON-encoded redisRecordPayload
//	<prefix>idx:app:<app>     => SET of pkeys for a given app
//
// The app index is always updated on Insert, and ScanKeys filters its
// members by prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

type redisRecordPayload struct {
	PKey    string    `json:"pkey"`
	AppName string    `json:"app_name"`
	Data    []byte    `json:"data"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "pipevine:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pipevine:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) keyRecord(pkey string) string {
	return s.prefix + "rec:" + pkey
}

func (s *RedisStore) keyApp(appName string) string {
	return s.prefix + "idx:app:" + appName
}

func encodeRedisPayload(rec Record) ([]byte, error) {
	return codec.Marshal(redisRecordPayload{
		PKey:    rec.PKey,
		AppName: rec.AppName,
		Data:    rec.Data,
		Created: rec.Created,
		Updated: rec.Updated,
	})
}

func decodeRedisPayload(data []byte) (Record, error) {
	if len(data) == 0 {
		return Record{}, api.ErrPipelineNotFound
	}
	var payload redisRecordPayload
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Record{}, err
	}
	return Record{
		PKey:    payload.PKey,
		AppName: payload.AppName,
		Data:    payload.Data,
		Created: payload.Created,
		Updated: payload.Updated,
	}, nil
}

func (s *RedisStore) Insert(ctx context.Context, rec Record) error {
	data, err := encodeRedisPayload(rec)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.keyRecord(rec.PKey), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return api.ErrKeyConflict
	}

	// Index update is best-effort; ScanKeys re-checks prefixes anyway.
	_ = s.client.SAdd(ctx, s.keyApp(rec.AppName), rec.PKey).Err()

	return nil
}

func (s *RedisStore) Get(ctx context.Context, pkey string) (Record, error) {
	data, err := s.client.Get(ctx, s.keyRecord(pkey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, api.ErrPipelineNotFound
		}
		return Record{}, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisStore) Update(ctx context.Context, pkey string, data []byte, updated time.Time) error {
	rec, err := s.Get(ctx, pkey)
	if err != nil {
		return err
	}

	rec.Data = data
	rec.Updated = updated

	payload, err := encodeRedisPayload(rec)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.keyRecord(pkey), payload, 0).Err()
}

func (s *RedisStore) ScanKeys(ctx context.Context, appName, prefix string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.keyApp(appName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, pkey := range members {
		if strings.HasPrefix(pkey, prefix) {
			keys = append(keys, pkey)
		}
	}

	sort.Strings(keys)
	return keys, nil
}
