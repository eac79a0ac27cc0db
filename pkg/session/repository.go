package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no state is stored under an id.
//
//nolint:gochecknoglobals // sentinel error
var ErrNotFound = errors.New("session not found")

// Repository persists run state by session id.
type Repository interface {
	Get(ctx context.Context, id string) (st *State, err error)
	Put(ctx context.Context, id string, st *State) (err error)
	Delete(ctx context.Context, id string) (err error)
}

// MemoryRepository keeps state in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string][]byte
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() (repo *MemoryRepository) {
	repo = &MemoryRepository{states: make(map[string][]byte)}
	return repo
}

// Get returns a decoded copy, so callers never share state with the repository.
func (r *MemoryRepository) Get(ctx context.Context, id string) (st *State, err error) {
	r.mu.Lock()
	data, ok := r.states[id]
	r.mu.Unlock()

	if !ok {
		err = ErrNotFound
		return st, err
	}

	st, err = Decode(data)
	return st, err
}

func (r *MemoryRepository) Put(ctx context.Context, id string, st *State) (err error) {
	var data []byte
	data, err = Encode(st)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.states[id] = data
	r.mu.Unlock()

	return err
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (err error) {
	r.mu.Lock()
	delete(r.states, id)
	r.mu.Unlock()

	return err
}

// RedisRepository keeps state in Redis with a sliding expiry.
type RedisRepository struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisRepository connects to addr and verifies the connection.
func NewRedisRepository(ctx context.Context, addr string, ttl time.Duration) (repo *RedisRepository, err error) {
	if addr == "" {
		err = errors.New("redis address is required")
		return repo, err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = rdb.Ping(pingCtx).Err()
	if err != nil {
		_ = rdb.Close()
		err = errors.Wrapf(err, "failed to reach redis at %s", addr)
		return repo, err
	}

	repo = NewRedisRepositoryFromClient(rdb, ttl)
	return repo, err
}

// NewRedisRepositoryFromClient wraps an existing client.
func NewRedisRepositoryFromClient(rdb *goredis.Client, ttl time.Duration) (repo *RedisRepository) {
	repo = &RedisRepository{
		rdb:    rdb,
		prefix: "jobdocs:session:",
		ttl:    ttl,
	}
	return repo
}

func (r *RedisRepository) Get(ctx context.Context, id string) (st *State, err error) {
	var data []byte
	data, err = r.rdb.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		err = ErrNotFound
		return st, err
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to read session %s", id)
		return st, err
	}

	st, err = Decode(data)
	return st, err
}

func (r *RedisRepository) Put(ctx context.Context, id string, st *State) (err error) {
	var data []byte
	data, err = Encode(st)
	if err != nil {
		return err
	}

	err = r.rdb.Set(ctx, r.prefix+id, data, r.ttl).Err()
	if err != nil {
		err = errors.Wrapf(err, "failed to write session %s", id)
		return err
	}

	return err
}

func (r *RedisRepository) Delete(ctx context.Context, id string) (err error) {
	err = r.rdb.Del(ctx, r.prefix+id).Err()
	if err != nil {
		err = errors.Wrapf(err, "failed to delete session %s", id)
		return err
	}
	return err
}

// Close releases the client.
func (r *RedisRepository) Close() (err error) {
	err = r.rdb.Close()
	return err
}
