package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Accounts are stored as JSON strings; display order is a LIST of IDs.
type Storage struct {
	client *redis.Client
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultConfig().Namespace
	}
	return &Storage{
		client: client,
		keys:   keys{prefix: cfg.Namespace},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	key := s.keys.account(account.ID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + order update
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		if exists == 0 {
			pipe.RPush(ctx, s.keys.order(), string(account.ID))
		}
		return nil
	})
	return err
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, s.keys.account(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	ids, err := s.client.LRange(ctx, s.keys.order(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Account{}, nil
	}

	accountKeys := make([]string, len(ids))
	for i, id := range ids {
		accountKeys[i] = s.keys.account(model.AccountID(id))
	}

	values, err := s.client.MGet(ctx, accountKeys...).Result()
	if err != nil {
		return nil, err
	}

	accounts := make([]model.Account, 0, len(values))
	for _, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue // order entry without a record
		}
		var account model.Account
		if err := json.Unmarshal([]byte(raw), &account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.AccountID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.account(id))
	pipe.LRem(ctx, s.keys.order(), 0, string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) SetAccountOrder(ctx context.Context, ids []model.AccountID) error {
	orderKey := s.keys.order()

	// WATCH the order so a concurrent save or delete aborts the rewrite
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.LRange(ctx, orderKey, 0, -1).Result()
		if err != nil {
			return err
		}
		currentIDs := make([]model.AccountID, len(current))
		for i, id := range current {
			currentIDs[i] = model.AccountID(id)
		}
		if err := storage.CheckOrder(ids, currentIDs); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, orderKey)
			if len(ids) > 0 {
				members := make([]interface{}, len(ids))
				for i, id := range ids {
					members[i] = string(id)
				}
				pipe.RPush(ctx, orderKey, members...)
			}
			return nil
		})
		return err
	}, orderKey)
}

// Settings operations

func (s *Storage) GetSettings(ctx context.Context) (*model.Settings, error) {
	data, err := s.client.Get(ctx, s.keys.settings()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.Settings{}, nil
		}
		return nil, err
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.settings(), data, 0).Err()
}
