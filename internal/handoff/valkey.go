package handoff

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/sozercan/vision-results/internal/config"
)

const valkeyRetries = 3

// ValkeyStore keeps hand-off values in Valkey so that any replica of the
// service can serve a session. Keys expire after the configured TTL.
type ValkeyStore struct {
	client valkey.Client
	ttl    time.Duration
}

func NewValkeyStore(ctx context.Context, cfg config.HandoffConfig) (*ValkeyStore, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.ValkeyAddress,
		},
		Password:         cfg.ValkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.ValkeyTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	ttl := cfg.TTL
	if ttl < time.Second {
		ttl = defaultTTL
	}

	slog.Info("connected to valkey", "address", cfg.ValkeyAddress)
	return &ValkeyStore{client: client, ttl: ttl}, nil
}

func (s *ValkeyStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	res := s.doWithRetry(ctx, func() valkey.Completed {
		return s.client.B().Get().Key(valkeyKey(session, key)).Build()
	})
	value, err := res.ToString()
	if valkey.IsValkeyNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, session, key, value string) error {
	res := s.doWithRetry(ctx, func() valkey.Completed {
		return s.client.B().Set().Key(valkeyKey(session, key)).Value(value).ExSeconds(int64(s.ttl / time.Second)).Build()
	})
	if err := res.Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, session string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = valkeyKey(session, key)
	}
	res := s.doWithRetry(ctx, func() valkey.Completed {
		return s.client.B().Del().Key(full...).Build()
	})
	if err := res.Error(); err != nil {
		return fmt.Errorf("valkey del: %w", err)
	}
	return nil
}

func (s *ValkeyStore) Close() {
	s.client.Close()
}

// doWithRetry retries connection failures. Commands are rebuilt for every
// attempt since the client recycles them after Do.
func (s *ValkeyStore) doWithRetry(ctx context.Context, build func() valkey.Completed) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < valkeyRetries; i++ {
		result = s.client.Do(ctx, build())
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) || !isConnectionError(err) {
			break
		}

		slog.Warn("valkey command failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		select {
		case <-ctx.Done():
			return result
		case <-time.After(250 * time.Millisecond):
		}
	}
	return result
}

func valkeyKey(session, key string) string {
	return "handoff:" + session + ":" + key
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}

var _ Store = (*ValkeyStore)(nil)
