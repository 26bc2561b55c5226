package cache

import (
	"context"
	"time"
)

// KeyPrefix: 외부 저장소 키 접두사
const KeyPrefix = "transfer-gateway:"

// Store: 직렬화된 응답 본문을 저장하는 캐시 저장소
type Store interface {
	// Get: 키가 없으면 (nil, false, nil)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryStore: 프로세스 내 LRU+TTL 저장소
type MemoryStore struct {
	items *TTLCache[string, []byte]
}

// NewMemoryStore: 최대 크기와 기본 TTL 로 메모리 저장소를 만든다.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: NewTTLCache[string, []byte](maxSize, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.items.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.items.SetWithTTL(key, value, ttl)
	return nil
}
