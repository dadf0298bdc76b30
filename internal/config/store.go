package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/aretw0/policylab/pkg/adapters/file"
	"github.com/aretw0/policylab/pkg/adapters/memory"
	"github.com/aretw0/policylab/pkg/adapters/redis"
	"github.com/aretw0/policylab/pkg/adapters/sqlite"
	"github.com/aretw0/policylab/pkg/persistence/middleware"
	"github.com/aretw0/policylab/pkg/ports"
)

// Backend is an opened session store.
type Backend struct {
	Store ports.KVStore

	// Locker is set for backends shared between processes.
	Locker ports.DistributedLocker

	close func() error
}

// Close releases the connections held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore opens the configured store backend, wrapped in the encryption middleware
// when a key is configured.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.Backend {
	case BackendMemory:
		b.Store = memory.NewStore()
	case BackendFile:
		b.Store = file.New(cfg.Dir)
	case BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.close = s.Close
	case BackendRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		b.Store = s
		b.Locker = redis.NewLocker(s.Client(), cfg.Redis.Prefix)
		b.close = s.Close
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		mw, err := encryption(cfg)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Store = middleware.Chain(b.Store, mw)
	}

	logger.Debug("Session store opened",
		"backend", cfg.Backend,
		"encrypted", cfg.EncryptionKey != "",
		"distributed_lock", b.Locker != nil,
	)
	return b, nil
}

func encryption(cfg StoreConfig) (middleware.Middleware, error) {
	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	var fallback [][]byte
	for _, k := range cfg.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		fallback = append(fallback, key)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex key: %w", err)
	}
	if len(key) != middleware.KeySize {
		return nil, middleware.ErrInvalidKey
	}
	return key, nil
}
