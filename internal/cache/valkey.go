package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig: Valkey 연결 설정
type ValkeyConfig struct {
	Addr        string
	DialTimeout time.Duration
	// MaxWait: 기동 시 연결 재시도 최대 대기 시간
	MaxWait time.Duration
	// DisableCache: 클라이언트 사이드 캐싱 비활성화 (miniredis 사용 시 true)
	DisableCache bool
}

// ConnectValkey: 지수 백오프로 PING 이 성공할 때까지 연결을 시도한다.
func ConnectValkey(ctx context.Context, cfg ValkeyConfig, logger *slog.Logger) (valkey.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("valkey addr is empty")
	}

	opts := valkey.ClientOption{
		InitAddress:       []string{addr},
		DisableCache:      cfg.DisableCache,
		ForceSingleClient: true,
	}
	if cfg.DialTimeout > 0 {
		opts.Dialer.Timeout = cfg.DialTimeout
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = cfg.MaxWait
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = 10 * time.Second
	}

	var client valkey.Client
	attempt := 0
	op := func() error {
		attempt++
		c, err := valkey.NewClient(opts)
		if err != nil {
			logger.Warn("valkey_connect_retry", slog.Int("attempt", attempt), slog.Any("error", err))
			return fmt.Errorf("create valkey client: %w", err)
		}
		if err := c.Do(ctx, c.B().Ping().Build()).Error(); err != nil {
			c.Close()
			logger.Warn("valkey_connect_retry", slog.Int("attempt", attempt), slog.Any("error", err))
			return fmt.Errorf("valkey ping: %w", err)
		}
		client = c
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", addr, err)
	}
	logger.Info("valkey_connected", slog.String("addr", addr), slog.Int("attempts", attempt))
	return client, nil
}

// ValkeyStore: Valkey 기반 저장소. 모든 키에 KeyPrefix 를 붙인다.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore: 연결된 클라이언트로 저장소를 만든다.
func NewValkeyStore(client valkey.Client) *ValkeyStore {
	return &ValkeyStore{client: client}
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(KeyPrefix+key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := s.client.B().Set().Key(KeyPrefix + key).Value(string(value)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}
